package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/toeicquiz/backend/internal/auth"
	"github.com/toeicquiz/backend/internal/clock"
	"github.com/toeicquiz/backend/internal/domain/attempt"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
	quizsession "github.com/toeicquiz/backend/internal/domain/quiz_session"
	"github.com/toeicquiz/backend/internal/service"
	"github.com/toeicquiz/backend/internal/store"
)

var learner = auth.Identity{UserID: "u1", Email: "u1@example.com"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedBank(t *testing.T, s store.DocumentStore, minutes int) {
	t.Helper()
	ctx := context.Background()

	if minutes > 0 {
		if err := s.Set(ctx, questionbank.SettingsCollection, questionbank.SettingsDocumentID,
			questionbank.Settings{TestTimeMinutes: minutes}); err != nil {
			t.Fatalf("seed settings: %v", err)
		}
	}

	records := []questionbank.QuestionRecord{
		{ID: "a", QuestionType: "vocabulary", Question: "Q1", Options: []string{"w", "x", "y", "z"}, Correct: 1},
		{ID: "b", QuestionType: "grammar", Question: "Q2", Options: []string{"w", "x", "y", "z"}, Correct: 1},
	}
	for _, r := range records {
		if err := s.Set(ctx, questionbank.QuestionsCollection, r.ID, r); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
}

func newService(t *testing.T, s store.DocumentStore) (*service.QuizService, *clock.Manual) {
	t.Helper()
	sched := clock.NewManual()
	svc := service.NewQuizService(s, sched, discardLogger(), service.Options{PersistWorkers: 1})
	t.Cleanup(svc.Close)
	return svc, sched
}

func TestLoadQuiz_NoStore(t *testing.T) {
	svc, _ := newService(t, nil)

	if _, err := svc.LoadQuiz(context.Background()); !errors.Is(err, service.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if _, err := svc.Start(context.Background(), learner); !errors.Is(err, service.ErrConfiguration) {
		t.Errorf("expected Start to fail with ErrConfiguration, got %v", err)
	}
}

func TestLoadQuiz_DefaultsDurationWithoutSettings(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 0)
	svc, _ := newService(t, s)

	quiz, err := svc.LoadQuiz(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiz.DurationMinutes != questionbank.DefaultTestTimeMinutes {
		t.Errorf("expected %d minutes, got %d", questionbank.DefaultTestTimeMinutes, quiz.DurationMinutes)
	}
	if len(quiz.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(quiz.Questions))
	}
}

func TestLoadQuiz_EmptyBank(t *testing.T) {
	svc, _ := newService(t, store.NewMemory())

	if _, err := svc.LoadQuiz(context.Background()); !errors.Is(err, service.ErrNoQuestions) {
		t.Errorf("expected ErrNoQuestions, got %v", err)
	}
}

func TestLoadQuiz_FallsBackToDocumentID(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	s.Set(ctx, questionbank.QuestionsCollection, "doc-1", map[string]any{
		"questionType": "vocabulary",
		"question":     "Q",
		"options":      []string{"a", "b"},
		"correct":      0,
	})
	svc, _ := newService(t, s)

	quiz, err := svc.LoadQuiz(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiz.Questions[0].SourceID != "doc-1" {
		t.Errorf("expected source id doc-1, got %q", quiz.Questions[0].SourceID)
	}
}

func TestFullAttempt_PersistsAndReviews(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 5)
	svc, _ := newService(t, s)
	ctx := context.Background()

	snap, err := svc.Start(ctx, learner)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Status != quizsession.InProgress || snap.State.TimeRemaining != 300 {
		t.Fatalf("unexpected snapshot after start: %s %d", snap.Status, snap.State.TimeRemaining)
	}

	svc.Answer(learner, 1)
	snap, err = svc.Answer(learner, 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if snap.Status != quizsession.Finished || snap.Result.Percentage != 50 {
		t.Fatalf("expected finished at 50%%, got %s %+v", snap.Status, snap.Result)
	}

	svc.WaitForPersistence(learner.UserID)

	hist, err := svc.History(ctx, learner.UserID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Recent.Attempts) != 1 || len(hist.Best.Attempts) != 1 {
		t.Fatalf("expected one attempt in both views, got %d and %d", len(hist.Recent.Attempts), len(hist.Best.Attempts))
	}
	saved := hist.Recent.Attempts[0]
	if saved.ID == "" || saved.ScorePercentage != 50 {
		t.Errorf("unexpected saved attempt: %+v", saved)
	}

	review, err := svc.Review(ctx, learner, "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if review.AttemptID != saved.ID {
		t.Errorf("expected review of %s, got %s", saved.ID, review.AttemptID)
	}
	if !review.Items[0].IsCorrect || review.Items[1].IsCorrect {
		t.Errorf("expected first correct and second incorrect, got %+v", review.Items)
	}
	if svc.Current(learner).Status != quizsession.Reviewing {
		t.Errorf("expected reviewing, got %s", svc.Current(learner).Status)
	}

	snap, err = svc.Restart(learner)
	if err != nil || snap.Status != quizsession.Idle {
		t.Errorf("expected idle after restart, got %s (%v)", snap.Status, err)
	}
}

func TestExpiry_PersistsPaddedAnswers(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 1)
	svc, sched := newService(t, s)
	ctx := context.Background()

	svc.Start(ctx, learner)
	svc.Answer(learner, 1)
	sched.Advance(time.Minute)

	if got := svc.Current(learner); got.Status != quizsession.Finished || got.Reason != quizsession.FinishExpired {
		t.Fatalf("expected expired finish, got %s %q", got.Status, got.Reason)
	}

	svc.WaitForPersistence(learner.UserID)

	hist, _ := svc.History(ctx, learner.UserID)
	if len(hist.Recent.Attempts) != 1 {
		t.Fatalf("expected one saved attempt, got %d", len(hist.Recent.Attempts))
	}
	if got := hist.Recent.Attempts[0].UserAnswers; len(got) != 2 || got[1] != attempt.NoAnswer {
		t.Errorf("expected answers [1 -1], got %v", got)
	}
}

func TestHistory_EmptyForNewLearner(t *testing.T) {
	svc, _ := newService(t, store.NewMemory())

	hist, err := svc.History(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hist.Recent.Empty() || !hist.Best.Empty() {
		t.Error("expected both views to be empty")
	}
}

func TestReview_OtherLearnersAttemptIsNotFound(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	id, _ := s.Add(ctx, attempt.Collection, attempt.Record{UserID: "someone-else"})
	svc, _ := newService(t, s)

	if _, err := svc.Review(ctx, learner, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if svc.Current(learner).Status != quizsession.Idle {
		t.Error("expected session to stay idle")
	}
}

func TestReview_NothingSaved(t *testing.T) {
	svc, _ := newService(t, store.NewMemory())

	if _, err := svc.Review(context.Background(), learner, ""); !errors.Is(err, service.ErrAttemptNotSaved) {
		t.Errorf("expected ErrAttemptNotSaved, got %v", err)
	}
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Add(context.Context, string, any) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestPersistenceFailureStillShowsResult(t *testing.T) {
	s := failingStore{store.NewMemory()}
	seedBank(t, s, 5)
	svc, _ := newService(t, s)

	svc.Start(context.Background(), learner)
	svc.Answer(learner, 1)
	snap, err := svc.Answer(learner, 1)
	if err != nil {
		t.Fatalf("expected finishing to succeed, got %v", err)
	}

	svc.WaitForPersistence(learner.UserID)

	if snap.Status != quizsession.Finished || snap.Result.Score != 2 {
		t.Errorf("expected finished 2/2, got %s %+v", snap.Status, snap.Result)
	}
	if _, err := svc.Review(context.Background(), learner, ""); !errors.Is(err, service.ErrAttemptNotSaved) {
		t.Errorf("expected ErrAttemptNotSaved, got %v", err)
	}
}

func TestBind_SignOutTearsDownSession(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 5)
	provider := auth.NewLocalProvider(s, discardLogger())
	ctx := context.Background()

	ident, err := provider.Register(ctx, "learner@example.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := provider.SignIn(ctx, "learner@example.com", "secret"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	svc, sched := newService(t, s)
	unsubscribe := svc.Bind(provider)
	defer unsubscribe()

	svc.Start(ctx, ident)
	if sched.Active() != 1 {
		t.Fatalf("expected a running countdown, got %d", sched.Active())
	}

	provider.SignOut(ctx, ident.UserID)

	if sched.Active() != 0 {
		t.Error("expected countdown to be cancelled on sign-out")
	}
	if svc.Current(ident).Status != quizsession.Idle {
		t.Errorf("expected idle session after sign-out, got %s", svc.Current(ident).Status)
	}
}

func finishQuiz(t *testing.T, svc *service.QuizService, ident auth.Identity, answers ...int) {
	t.Helper()
	if _, err := svc.Start(context.Background(), ident); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, a := range answers {
		if _, err := svc.Answer(ident, a); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
}

func TestReviewLatest_AfterReviewingOlderAttempt(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 5)
	svc, _ := newService(t, s)
	ctx := context.Background()

	finishQuiz(t, svc, learner, 1, 1)
	svc.WaitForPersistence(learner.UserID)
	first := svc.Current(learner).State.LastAttemptID
	svc.Restart(learner)

	finishQuiz(t, svc, learner, 0, 0)
	svc.WaitForPersistence(learner.UserID)
	latest := svc.Current(learner).State.LastAttemptID
	if first == "" || latest == "" || first == latest {
		t.Fatalf("expected two distinct saved attempts, got %q and %q", first, latest)
	}

	if _, err := svc.Review(ctx, learner, first); err != nil {
		t.Fatalf("review from history: %v", err)
	}

	review, err := svc.Review(ctx, learner, "")
	if err != nil {
		t.Fatalf("review latest: %v", err)
	}
	if review.AttemptID != latest {
		t.Errorf("expected latest review of %s, got %s", latest, review.AttemptID)
	}
	if review.Correct != 0 {
		t.Errorf("expected the zero-score attempt, got %d correct", review.Correct)
	}
}

func TestWaitForPersistence_ConcurrentWithNewFinishes(t *testing.T) {
	s := store.NewMemory()
	seedBank(t, s, 5)
	svc, _ := newService(t, s)

	done := make(chan struct{})
	var waiters sync.WaitGroup
	for i := 0; i < 4; i++ {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			for {
				select {
				case <-done:
					return
				default:
					svc.WaitForPersistence(learner.UserID)
				}
			}
		}()
	}

	const rounds = 20
	for i := 0; i < rounds; i++ {
		finishQuiz(t, svc, learner, 1, 0)
		svc.Restart(learner)
	}
	close(done)
	waiters.Wait()

	svc.WaitForPersistence(learner.UserID)
	records, err := s.Where(context.Background(), attempt.Collection, "userId", learner.UserID)
	if err != nil {
		t.Fatalf("where: %v", err)
	}
	if len(records) != rounds {
		t.Errorf("expected %d saved attempts, got %d", rounds, len(records))
	}
}
