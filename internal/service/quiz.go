// internal/service/quiz.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/toeicquiz/backend/internal/auth"
	"github.com/toeicquiz/backend/internal/clock"
	"github.com/toeicquiz/backend/internal/domain/attempt"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
	quizsession "github.com/toeicquiz/backend/internal/domain/quiz_session"
	"github.com/toeicquiz/backend/internal/store"
	"github.com/toeicquiz/backend/internal/worker"
)

const persistTimeout = 10 * time.Second

var (
	// ErrConfiguration means no document store is available. Starting a quiz is impossible.
	ErrConfiguration = errors.New("document store is not configured")
	// ErrDataFetch wraps failures loading the question bank or history.
	ErrDataFetch = errors.New("failed to load data")
	// ErrPersistence wraps attempt write failures. It is only ever logged.
	ErrPersistence = errors.New("failed to save quiz attempt")
	// ErrNoQuestions means the bank is empty after normalization.
	ErrNoQuestions = quizsession.ErrNoQuestions
	// ErrAttemptNotSaved means the attempt just finished has no stored id to review.
	ErrAttemptNotSaved = errors.New("quiz attempt has not been saved")
)

// Quiz is what a learner sees before starting.
type Quiz struct {
	Questions       []questionbank.AnswerableQuestion
	DurationMinutes int
}

// History holds the two projections over a learner's attempts.
type History struct {
	Recent attempt.View
	Best   attempt.View
}

// Options tune a QuizService.
type Options struct {
	PersistWorkers int
	Session        quizsession.SessionConfig
}

type persistOutcome struct {
	Seq       uint64
	AttemptID string
	Err       error
}

// QuizService owns one session controller per signed-in learner and
// persists finished attempts in the background. Attempt writes are never
// retried and never block showing a result.
type QuizService struct {
	store  store.DocumentStore
	sched  clock.Scheduler
	logger *slog.Logger
	opts   Options

	pool    *worker.Pool[persistOutcome]
	drained chan struct{}

	mu          sync.Mutex
	controllers map[string]*quizsession.Controller
	pending     map[string]int // userID → in-flight attempt writes
	persisted   *sync.Cond     // signalled on qs.mu when a write completes

	closeMu sync.RWMutex // held for reading while submitting to pool
	closed  bool
}

// NewQuizService creates a QuizService. A nil store is accepted so the
// service can report ErrConfiguration instead of failing at startup.
func NewQuizService(s store.DocumentStore, sched clock.Scheduler, logger *slog.Logger, opts Options) *QuizService {
	if opts.PersistWorkers < 1 {
		opts.PersistWorkers = 2
	}

	qs := &QuizService{
		store:       s,
		sched:       sched,
		logger:      logger,
		opts:        opts,
		pool:        worker.NewPool[persistOutcome](opts.PersistWorkers, 64),
		drained:     make(chan struct{}),
		controllers: make(map[string]*quizsession.Controller),
		pending:     make(map[string]int),
	}
	qs.persisted = sync.NewCond(&qs.mu)
	go qs.drain()
	return qs
}

// Bind tears down a learner's session whenever they sign out.
func (qs *QuizService) Bind(p auth.Provider) (unsubscribe func()) {
	return p.Subscribe(func(c auth.Change) {
		if c.Identity == nil {
			qs.EndSession(c.UserID)
		}
	})
}

// EndSession cancels any running countdown and forgets the learner's session.
func (qs *QuizService) EndSession(userID string) {
	qs.mu.Lock()
	c, ok := qs.controllers[userID]
	delete(qs.controllers, userID)
	qs.mu.Unlock()

	if ok {
		c.Teardown()
	}
}

// Close tears down every session and waits for queued attempt writes.
func (qs *QuizService) Close() {
	qs.closeMu.Lock()
	if qs.closed {
		qs.closeMu.Unlock()
		return
	}
	qs.closed = true
	qs.closeMu.Unlock()

	qs.mu.Lock()
	controllers := qs.controllers
	qs.controllers = make(map[string]*quizsession.Controller)
	qs.mu.Unlock()

	for _, c := range controllers {
		c.Teardown()
	}

	qs.pool.Close()
	<-qs.drained
}

// ============================================================================
// Quiz data
// ============================================================================

// LoadQuiz fetches the settings and the question bank and flattens the bank.
func (qs *QuizService) LoadQuiz(ctx context.Context) (Quiz, error) {
	if qs.store == nil {
		return Quiz{}, ErrConfiguration
	}

	settings := questionbank.DefaultSettings()
	snap, err := qs.store.Get(ctx, questionbank.SettingsCollection, questionbank.SettingsDocumentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		qs.logger.Warn("test settings not found, using defaults", "test_time_min", settings.TestTimeMinutes)
	case err != nil:
		return Quiz{}, fmt.Errorf("%w: settings: %w", ErrDataFetch, err)
	default:
		if err := snap.DataTo(&settings); err != nil {
			return Quiz{}, fmt.Errorf("%w: decode settings: %w", ErrDataFetch, err)
		}
	}

	snaps, err := qs.store.List(ctx, questionbank.QuestionsCollection)
	if err != nil {
		return Quiz{}, fmt.Errorf("%w: questions: %w", ErrDataFetch, err)
	}

	records := make([]questionbank.QuestionRecord, 0, len(snaps))
	for _, s := range snaps {
		var rec questionbank.QuestionRecord
		if err := s.DataTo(&rec); err != nil {
			return Quiz{}, fmt.Errorf("%w: decode question %s: %w", ErrDataFetch, s.ID, err)
		}
		if rec.ID == "" {
			rec.ID = s.ID
		}
		records = append(records, rec)
	}

	questions := questionbank.Normalize(records)
	if len(questions) == 0 {
		return Quiz{}, ErrNoQuestions
	}

	return Quiz{Questions: questions, DurationMinutes: settings.TestTimeMinutes}, nil
}

// ============================================================================
// Session
// ============================================================================

// Start loads the quiz and starts the learner's countdown.
func (qs *QuizService) Start(ctx context.Context, ident auth.Identity) (quizsession.Snapshot, error) {
	quiz, err := qs.LoadQuiz(ctx)
	if err != nil {
		return quizsession.Snapshot{}, err
	}

	c := qs.controllerFor(ident)
	if err := c.Start(quiz.Questions, quiz.DurationMinutes); err != nil {
		return quizsession.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Answer submits the learner's choice for the current question.
// A negative selection means no option was chosen.
func (qs *QuizService) Answer(ident auth.Identity, selected int) (quizsession.Snapshot, error) {
	c := qs.controllerFor(ident)
	if err := c.SubmitAnswer(selected); err != nil {
		return quizsession.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Current returns the learner's session as it stands.
func (qs *QuizService) Current(ident auth.Identity) quizsession.Snapshot {
	return qs.controllerFor(ident).Snapshot()
}

// Restart returns a finished or reviewed session to idle.
func (qs *QuizService) Restart(ident auth.Identity) (quizsession.Snapshot, error) {
	c := qs.controllerFor(ident)
	if err := c.Restart(); err != nil {
		return quizsession.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

func (qs *QuizService) controllerFor(ident auth.Identity) *quizsession.Controller {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	c, ok := qs.controllers[ident.UserID]
	if !ok {
		owner := quizsession.Owner{UserID: ident.UserID, Email: ident.Email}
		c = quizsession.New(owner, qs.sched, qs, qs.logger, qs.opts.Session)
		qs.controllers[ident.UserID] = c
	}
	return c
}

func (qs *QuizService) lookup(userID string) *quizsession.Controller {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	return qs.controllers[userID]
}

// ============================================================================
// History & review
// ============================================================================

// History fetches the learner's attempts once and derives both views.
func (qs *QuizService) History(ctx context.Context, userID string) (History, error) {
	records, err := qs.attemptsOf(ctx, userID)
	if err != nil {
		return History{}, err
	}
	return History{
		Recent: attempt.Recent(records),
		Best:   attempt.Best(records),
	}, nil
}

func (qs *QuizService) attemptsOf(ctx context.Context, userID string) ([]attempt.Record, error) {
	if qs.store == nil {
		return nil, ErrConfiguration
	}

	snaps, err := qs.store.Where(ctx, attempt.Collection, "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("%w: attempts: %w", ErrDataFetch, err)
	}

	records := make([]attempt.Record, 0, len(snaps))
	for _, s := range snaps {
		var rec attempt.Record
		if err := s.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("%w: decode attempt %s: %w", ErrDataFetch, s.ID, err)
		}
		rec.ID = s.ID
		records = append(records, rec)
	}
	return records, nil
}

// Review loads one of the learner's attempts and moves their session to
// reviewing. An empty attemptID reviews the attempt they just finished.
func (qs *QuizService) Review(ctx context.Context, ident auth.Identity, attemptID string) (attempt.Review, error) {
	if qs.store == nil {
		return attempt.Review{}, ErrConfiguration
	}

	c := qs.controllerFor(ident)
	if attemptID == "" {
		attemptID = c.Snapshot().State.LastAttemptID
		if attemptID == "" {
			return attempt.Review{}, ErrAttemptNotSaved
		}
	}

	snap, err := qs.store.Get(ctx, attempt.Collection, attemptID)
	if errors.Is(err, store.ErrNotFound) {
		return attempt.Review{}, store.ErrNotFound
	}
	if err != nil {
		return attempt.Review{}, fmt.Errorf("%w: attempt %s: %w", ErrDataFetch, attemptID, err)
	}

	var rec attempt.Record
	if err := snap.DataTo(&rec); err != nil {
		return attempt.Review{}, fmt.Errorf("%w: decode attempt %s: %w", ErrDataFetch, attemptID, err)
	}
	rec.ID = attemptID

	if rec.UserID != ident.UserID {
		return attempt.Review{}, store.ErrNotFound
	}

	if err := c.BeginReview(attemptID); err != nil {
		return attempt.Review{}, err
	}

	review := attempt.Reconstruct(rec)
	if !review.Consistent() {
		qs.logger.Warn("review recount differs from stored score",
			"attempt_id", attemptID,
			"stored", review.StoredScore,
			"recount", review.Correct,
		)
	}
	return review, nil
}

// ============================================================================
// Persistence
// ============================================================================

// Record queues a finished attempt for writing. It implements quizsession.Recorder.
func (qs *QuizService) Record(p quizsession.Pending) {
	userID := p.Record.UserID

	qs.closeMu.RLock()
	defer qs.closeMu.RUnlock()
	if qs.closed {
		qs.logger.Warn("quiz attempt dropped after shutdown", "user_id", userID)
		return
	}

	qs.mu.Lock()
	qs.pending[userID]++
	qs.mu.Unlock()

	qs.pool.Submit(userID, func() persistOutcome {
		if qs.store == nil {
			return persistOutcome{Seq: p.Seq, Err: ErrConfiguration}
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		attemptID, err := qs.store.Add(ctx, attempt.Collection, p.Record)
		return persistOutcome{Seq: p.Seq, AttemptID: attemptID, Err: err}
	})
}

// WaitForPersistence blocks until no write for userID is in flight. Writes
// queued while it waits extend the wait.
func (qs *QuizService) WaitForPersistence(userID string) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	for qs.pending[userID] > 0 {
		qs.persisted.Wait()
	}
}

func (qs *QuizService) drain() {
	defer close(qs.drained)

	for res := range qs.pool.Results() {
		out := res.Output
		if out.Err != nil {
			qs.logger.Error("failed to save quiz attempt",
				"user_id", res.JobID,
				"error", fmt.Errorf("%w: %w", ErrPersistence, out.Err),
			)
		} else {
			qs.logger.Info("quiz attempt saved", "user_id", res.JobID, "attempt_id", out.AttemptID)
			if c := qs.lookup(res.JobID); c != nil {
				c.AttachAttemptID(out.Seq, out.AttemptID)
			}
		}

		qs.mu.Lock()
		qs.pending[res.JobID]--
		if qs.pending[res.JobID] <= 0 {
			delete(qs.pending, res.JobID)
		}
		qs.persisted.Broadcast()
		qs.mu.Unlock()
	}
}
