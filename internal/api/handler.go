// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/toeicquiz/backend/internal/auth"
	quizsession "github.com/toeicquiz/backend/internal/domain/quiz_session"
	"github.com/toeicquiz/backend/internal/service"
	"github.com/toeicquiz/backend/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	quiz   *service.QuizService
	users  auth.Provider
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(quiz *service.QuizService, users auth.Provider, tokens *auth.TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		quiz:   quiz,
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

type validator interface {
	Validate() error
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate decodes the request body into v and runs its Validate
// method. Returns false if a response has already been written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleServiceError maps quiz and store errors to HTTP responses.
// Returns true if an error was handled (caller should return).
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, service.ErrConfiguration):
		respondError(w, http.StatusServiceUnavailable, "quiz data is not configured")
	case errors.Is(err, service.ErrNoQuestions):
		respondError(w, http.StatusConflict, "no questions are available")
	case errors.Is(err, service.ErrAttemptNotSaved), errors.Is(err, quizsession.ErrNothingToReview):
		respondError(w, http.StatusConflict, "attempt has not been saved yet")
	case errors.Is(err, quizsession.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quizsession.ErrInvalidOption), errors.Is(err, quizsession.ErrInvalidDuration):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDataFetch):
		h.logger.Error("data fetch failed", "error", err, "entity", entity)
		respondError(w, http.StatusBadGateway, "failed to load "+entity)
	default:
		h.logger.Error("unexpected error", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
