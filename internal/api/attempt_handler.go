package api

import (
	"net/http"
	"time"

	"github.com/toeicquiz/backend/internal/domain/attempt"
)

// ── Request / Response types ────────────────────────────────────────────────

type AttemptSummary struct {
	ID             string    `json:"id" example:"aB3dE5fG7hJ9kL1mN2pQ"`
	Timestamp      time.Time `json:"timestamp"`
	Score          int       `json:"score" example:"1"`
	TotalQuestions int       `json:"total_questions" example:"2"`
	Percentage     float64   `json:"percentage" example:"50"`
}

type AttemptListResponse struct {
	Attempts []AttemptSummary `json:"attempts"`
	Empty    bool             `json:"empty"`
}

type ReviewItemResponse struct {
	Index        int          `json:"index" example:"0"`
	Question     QuestionView `json:"question"`
	Explanation  string       `json:"explanation,omitempty"`
	UserAnswer   *int         `json:"user_answer"`
	UserLabel    string       `json:"user_label" example:"B"`
	CorrectIndex int          `json:"correct_index" example:"1"`
	CorrectLabel string       `json:"correct_label" example:"B"`
	IsCorrect    bool         `json:"is_correct"`
}

type ReviewResponse struct {
	AttemptID   string               `json:"attempt_id"`
	StoredScore int                  `json:"stored_score" example:"1"`
	Correct     int                  `json:"correct" example:"1"`
	Items       []ReviewItemResponse `json:"items"`
}

func toAttemptList(v attempt.View) AttemptListResponse {
	resp := AttemptListResponse{
		Attempts: make([]AttemptSummary, len(v.Attempts)),
		Empty:    v.Empty(),
	}
	for i, a := range v.Attempts {
		resp.Attempts[i] = AttemptSummary{
			ID:             a.ID,
			Timestamp:      a.Timestamp,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     a.ScorePercentage,
		}
	}
	return resp
}

func toReviewResponse(rv attempt.Review) ReviewResponse {
	resp := ReviewResponse{
		AttemptID:   rv.AttemptID,
		StoredScore: rv.StoredScore,
		Correct:     rv.Correct,
		Items:       make([]ReviewItemResponse, len(rv.Items)),
	}
	for i, it := range rv.Items {
		item := ReviewItemResponse{
			Index:        it.Index,
			Question:     *toQuestionView(it.Question),
			Explanation:  it.Question.Explanation,
			UserLabel:    it.UserAnswerLabel(),
			CorrectIndex: it.CorrectIndex,
			CorrectLabel: attempt.OptionLabel(it.CorrectIndex),
			IsCorrect:    it.IsCorrect,
		}
		if it.Answered() {
			answer := it.UserAnswer
			item.UserAnswer = &answer
		}
		resp.Items[i] = item
	}
	return resp
}

// ── Handlers ────────────────────────────────────────────────────────────────

// getHistory lists the learner's most recent attempts.
// @Summary      Recent attempts
// @Tags         Attempts
// @Security     BearerAuth
// @Produce      json
// @Success      200   {object}  AttemptListResponse
// @Failure      502   {object}  map[string]string
// @Router       /attempts/history [get]
func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.quiz.History(r.Context(), identityFrom(r.Context()).UserID)
	if h.handleServiceError(w, err, "history") {
		return
	}
	respondJSON(w, http.StatusOK, toAttemptList(hist.Recent))
}

// getBest lists the learner's highest scoring attempts.
// @Summary      Best attempts
// @Tags         Attempts
// @Security     BearerAuth
// @Produce      json
// @Success      200   {object}  AttemptListResponse
// @Failure      502   {object}  map[string]string
// @Router       /attempts/best [get]
func (h *Handler) getBest(w http.ResponseWriter, r *http.Request) {
	hist, err := h.quiz.History(r.Context(), identityFrom(r.Context()).UserID)
	if h.handleServiceError(w, err, "history") {
		return
	}
	respondJSON(w, http.StatusOK, toAttemptList(hist.Best))
}

// reviewAttempt rebuilds a stored attempt question by question.
// @Summary      Review an attempt
// @Tags         Attempts
// @Security     BearerAuth
// @Produce      json
// @Param        attemptID  path      string  true  "Attempt ID"
// @Success      200        {object}  ReviewResponse
// @Failure      404        {object}  map[string]string
// @Failure      409        {object}  map[string]string  "quiz in progress"
// @Router       /attempts/{attemptID}/review [get]
func (h *Handler) reviewAttempt(w http.ResponseWriter, r *http.Request) {
	rv, err := h.quiz.Review(r.Context(), identityFrom(r.Context()), r.PathValue("attemptID"))
	if h.handleServiceError(w, err, "attempt") {
		return
	}
	respondJSON(w, http.StatusOK, toReviewResponse(rv))
}

// GET /attempts/latest/review
func (h *Handler) reviewLatest(w http.ResponseWriter, r *http.Request) {
	rv, err := h.quiz.Review(r.Context(), identityFrom(r.Context()), "")
	if h.handleServiceError(w, err, "attempt") {
		return
	}
	respondJSON(w, http.StatusOK, toReviewResponse(rv))
}
