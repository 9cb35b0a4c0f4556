package api

import (
	"errors"
	"net/http"

	"github.com/toeicquiz/backend/internal/domain/attempt"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
	quizsession "github.com/toeicquiz/backend/internal/domain/quiz_session"
)

// ── Request / Response types ────────────────────────────────────────────────

type QuizInfoResponse struct {
	DurationMin    int `json:"duration_min" example:"120"`
	TotalQuestions int `json:"total_questions" example:"4"`
}

// SubmitAnswerRequest carries the chosen option. A null selection skips the question.
type SubmitAnswerRequest struct {
	Selected *int `json:"selected" example:"1"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if r.Selected != nil && *r.Selected < 0 {
		return errors.New("selected must be a non-negative option index or null")
	}
	return nil
}

// QuestionView is a question as shown while the quiz runs, without its answer.
type QuestionView struct {
	Text         string   `json:"text" example:"The report _______ by the marketing team yesterday."`
	Passage      string   `json:"passage,omitempty"`
	Options      []string `json:"options"`
	QuestionType string   `json:"question_type,omitempty" example:"grammar"`
	Level        string   `json:"level,omitempty" example:"intermediate"`
}

type ResultResponse struct {
	Score          int     `json:"score" example:"1"`
	TotalQuestions int     `json:"total_questions" example:"2"`
	Percentage     float64 `json:"percentage" example:"50"`
}

type SessionResponse struct {
	Status           string          `json:"status" example:"in_progress"`
	CurrentIndex     int             `json:"current_index" example:"0"`
	TotalQuestions   int             `json:"total_questions" example:"4"`
	Answered         int             `json:"answered" example:"0"`
	TimeRemainingSec int             `json:"time_remaining_sec" example:"7200"`
	DurationMin      int             `json:"duration_min" example:"120"`
	Question         *QuestionView   `json:"question,omitempty"`
	Result           *ResultResponse `json:"result,omitempty"`
	FinishReason     string          `json:"finish_reason,omitempty" example:"completed"`
	LastAttemptID    string          `json:"last_attempt_id,omitempty"`
	AttemptID        string          `json:"attempt_id,omitempty"`
}

func toQuestionView(q questionbank.AnswerableQuestion) *QuestionView {
	return &QuestionView{
		Text:         q.DisplayText,
		Passage:      q.Passage,
		Options:      q.Options,
		QuestionType: q.QuestionType,
		Level:        q.Level,
	}
}

func toResultResponse(res *attempt.Result) *ResultResponse {
	if res == nil {
		return nil
	}
	return &ResultResponse{
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		Percentage:     res.Percentage,
	}
}

func toSessionResponse(snap quizsession.Snapshot) SessionResponse {
	resp := SessionResponse{
		Status:           snap.Status.String(),
		CurrentIndex:     snap.State.CurrentIndex,
		TotalQuestions:   len(snap.State.Questions),
		Answered:         len(snap.State.UserAnswers),
		TimeRemainingSec: snap.State.TimeRemaining,
		DurationMin:      snap.State.DurationMinutes,
		Result:           toResultResponse(snap.Result),
		FinishReason:     string(snap.Reason),
		LastAttemptID:    snap.State.LastAttemptID,
		AttemptID:        snap.State.AttemptIDUnderReview,
	}
	if q, ok := snap.Current(); ok {
		resp.Question = toQuestionView(q)
	}
	return resp
}

// ── Handlers ────────────────────────────────────────────────────────────────

// getQuiz describes the quiz a learner is about to start.
// @Summary      Get quiz info
// @Tags         Quiz
// @Security     BearerAuth
// @Produce      json
// @Success      200   {object}  QuizInfoResponse
// @Failure      409   {object}  map[string]string  "no questions"
// @Failure      503   {object}  map[string]string
// @Router       /quiz [get]
func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quiz.LoadQuiz(r.Context())
	if h.handleServiceError(w, err, "quiz") {
		return
	}

	respondJSON(w, http.StatusOK, QuizInfoResponse{
		DurationMin:    quiz.DurationMinutes,
		TotalQuestions: len(quiz.Questions),
	})
}

// startQuiz starts a timed quiz for the learner.
// @Summary      Start a quiz
// @Tags         Quiz
// @Security     BearerAuth
// @Produce      json
// @Success      201   {object}  SessionResponse
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /quiz/start [post]
func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.quiz.Start(r.Context(), identityFrom(r.Context()))
	if h.handleServiceError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusCreated, toSessionResponse(snap))
}

// GET /quiz/current
func (h *Handler) currentQuiz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toSessionResponse(h.quiz.Current(identityFrom(r.Context()))))
}

// submitAnswer answers the current question and advances.
// @Summary      Answer the current question
// @Tags         Quiz
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      SubmitAnswerRequest  true  "Selected option"
// @Success      200   {object}  SessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "no quiz in progress"
// @Router       /quiz/answer [post]
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	selected := attempt.NoAnswer
	if req.Selected != nil {
		selected = *req.Selected
	}

	snap, err := h.quiz.Answer(identityFrom(r.Context()), selected)
	if h.handleServiceError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// POST /quiz/restart
func (h *Handler) restartQuiz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.quiz.Restart(identityFrom(r.Context()))
	if h.handleServiceError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}
