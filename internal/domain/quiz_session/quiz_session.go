package quizsession

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/toeicquiz/backend/internal/clock"
	"github.com/toeicquiz/backend/internal/domain/attempt"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrInvalidOption     = errors.New("selected option does not exist")
	ErrInvalidDuration   = errors.New("test duration cannot be negative")
	ErrNothingToReview   = errors.New("no attempt to review")
)

// Status is the position of a controller in the quiz lifecycle.
type Status int

const (
	Idle Status = iota
	InProgress
	Finished
	Reviewing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	case Reviewing:
		return "reviewing"
	default:
		return "unknown"
	}
}

// FinishReason tells how a quiz reached Finished.
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"
	FinishExpired   FinishReason = "expired"
)

// Owner identifies the learner a controller belongs to.
type Owner struct {
	UserID string
	Email  string
}

// State is the ephemeral data of one quiz attempt.
type State struct {
	Questions            []questionbank.AnswerableQuestion
	CurrentIndex         int
	UserAnswers          []int
	Score                int
	TimeRemaining        int // seconds
	DurationMinutes      int
	LastAttemptID        string // stored id of the quiz just finished
	AttemptIDUnderReview string
}

// Pending is a finished attempt handed to the Recorder. Seq ties a later
// AttachAttemptID call back to the quiz that produced it.
type Pending struct {
	Seq    uint64
	Record attempt.Record
}

// Recorder persists finished attempts. Record must not block on the write;
// the controller never waits for or retries it.
type Recorder interface {
	Record(p Pending)
}

// Snapshot is a copy of the controller's state safe to hand out.
type Snapshot struct {
	Status Status
	State  State
	Result *attempt.Result
	Reason FinishReason
}

// Current returns the question being answered, if any.
func (s Snapshot) Current() (questionbank.AnswerableQuestion, bool) {
	if s.Status != InProgress || s.State.CurrentIndex >= len(s.State.Questions) {
		return questionbank.AnswerableQuestion{}, false
	}
	return s.State.Questions[s.State.CurrentIndex], true
}

// Controller owns the quiz progression of a single learner. The countdown
// it starts never outlives the InProgress state.
type Controller struct {
	owner    Owner
	sched    clock.Scheduler
	recorder Recorder
	logger   *slog.Logger
	cfg      SessionConfig

	mu     sync.Mutex
	status Status
	state  State
	result *attempt.Result
	reason FinishReason
	timer  clock.Timer
	gen    uint64 // bumped whenever a countdown is started or torn down
	seq    uint64 // bumped on every finished quiz
}

// New creates an idle controller.
func New(owner Owner, sched clock.Scheduler, recorder Recorder, logger *slog.Logger, cfg SessionConfig) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		owner:    owner,
		sched:    sched,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// Owner returns the learner this controller belongs to.
func (c *Controller) Owner() Owner {
	return c.owner
}

// Start begins a new quiz from Idle or Finished.
func (c *Controller) Start(questions []questionbank.AnswerableQuestion, durationMinutes int) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	if durationMinutes < 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Idle && c.status != Finished {
		return c.transitionError("start")
	}

	qs := make([]questionbank.AnswerableQuestion, len(questions))
	copy(qs, questions)

	c.stopTimerLocked()
	c.state = State{
		Questions:       qs,
		UserAnswers:     []int{},
		TimeRemaining:   durationMinutes * 60,
		DurationMinutes: durationMinutes,
	}
	c.result = nil
	c.reason = ""
	c.status = InProgress

	gen := c.gen
	c.timer = c.sched.Every(c.cfg.TickInterval, func() { c.tick(gen) })

	c.logger.Info("quiz started",
		"user_id", c.owner.UserID,
		"questions", len(qs),
		"duration_min", durationMinutes,
	)
	return nil
}

// SubmitAnswer records the answer to the current question and advances.
// A negative selection means the learner skipped the question.
func (c *Controller) SubmitAnswer(selected int) error {
	c.mu.Lock()

	if c.status != InProgress {
		err := c.transitionError("submit an answer")
		c.mu.Unlock()
		return err
	}

	if selected < 0 {
		selected = attempt.NoAnswer
	} else if selected >= len(c.state.Questions[c.state.CurrentIndex].Options) {
		c.mu.Unlock()
		return ErrInvalidOption
	}

	c.state.UserAnswers = append(c.state.UserAnswers, selected)

	var pending *Pending
	if c.state.CurrentIndex >= len(c.state.Questions)-1 {
		pending = c.finishLocked(FinishCompleted)
	} else {
		c.state.CurrentIndex++
	}
	c.mu.Unlock()

	c.emit(pending)
	return nil
}

// tick consumes one second of the countdown started under gen.
func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.status != InProgress || gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.state.TimeRemaining--
	var pending *Pending
	if c.state.TimeRemaining <= 0 {
		c.state.TimeRemaining = 0
		pending = c.finishLocked(FinishExpired)
	}
	c.mu.Unlock()

	c.emit(pending)
}

// finishLocked scores the quiz and moves to Finished. Caller holds c.mu.
func (c *Controller) finishLocked(reason FinishReason) *Pending {
	c.stopTimerLocked()

	res := attempt.Score(c.state.Questions, c.state.UserAnswers)
	c.state.Score = res.Score
	c.result = &res
	c.reason = reason
	c.status = Finished
	c.seq++

	rec := attempt.NewRecord(c.owner.UserID, c.owner.Email, c.cfg.Now(), c.state.Questions, c.state.UserAnswers)

	c.logger.Info("quiz finished",
		"user_id", c.owner.UserID,
		"reason", string(reason),
		"score", res.Score,
		"total", res.TotalQuestions,
		"answered", len(c.state.UserAnswers),
	)
	return &Pending{Seq: c.seq, Record: rec}
}

func (c *Controller) emit(p *Pending) {
	if p == nil || c.recorder == nil {
		return
	}
	c.recorder.Record(*p)
}

// AttachAttemptID links the stored id of the quiz just finished so it can be
// reviewed right away. It is accepted while Finished or Reviewing; ids for
// superseded quizzes are ignored.
func (c *Controller) AttachAttemptID(seq uint64, attemptID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if (c.status != Finished && c.status != Reviewing) || seq != c.seq {
		return false
	}
	c.state.LastAttemptID = attemptID
	return true
}

// BeginReview moves to Reviewing. An empty id reviews the attempt just
// finished. A running quiz cannot be reviewed.
func (c *Controller) BeginReview(attemptID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == InProgress {
		return c.transitionError("review")
	}

	if attemptID == "" {
		attemptID = c.state.LastAttemptID
	}
	if attemptID == "" {
		return ErrNothingToReview
	}

	c.state.AttemptIDUnderReview = attemptID
	c.status = Reviewing
	return nil
}

// Restart discards the finished or reviewed quiz and returns to Idle.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Finished && c.status != Reviewing {
		return c.transitionError("restart")
	}
	c.resetLocked()
	return nil
}

// Teardown cancels any running countdown and returns to Idle from any
// state. Used when the learner signs out.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == InProgress {
		c.logger.Info("quiz abandoned", "user_id", c.owner.UserID, "answered", len(c.state.UserAnswers))
	}
	c.stopTimerLocked()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = State{}
	c.result = nil
	c.reason = ""
	c.status = Idle
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// Status returns the current lifecycle position.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns a copy of the controller's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Questions = append([]questionbank.AnswerableQuestion(nil), c.state.Questions...)
	st.UserAnswers = append([]int(nil), c.state.UserAnswers...)

	snap := Snapshot{Status: c.status, State: st, Reason: c.reason}
	if c.result != nil {
		res := *c.result
		snap.Result = &res
	}
	return snap
}

func (c *Controller) transitionError(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, c.status)
}
