// internal/api/router.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/toeicquiz/backend/internal/auth"
)

// RegisterRoutes wires all endpoints onto mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Auth
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/logout", h.authenticated(h.logout))

	// Quiz session
	mux.HandleFunc("GET /quiz", h.authenticated(h.getQuiz))
	mux.HandleFunc("POST /quiz/start", h.authenticated(h.startQuiz))
	mux.HandleFunc("GET /quiz/current", h.authenticated(h.currentQuiz))
	mux.HandleFunc("POST /quiz/answer", h.authenticated(h.submitAnswer))
	mux.HandleFunc("POST /quiz/restart", h.authenticated(h.restartQuiz))

	// Attempts
	mux.HandleFunc("GET /attempts/history", h.authenticated(h.getHistory))
	mux.HandleFunc("GET /attempts/best", h.authenticated(h.getBest))
	mux.HandleFunc("GET /attempts/latest/review", h.authenticated(h.reviewLatest))
	mux.HandleFunc("GET /attempts/{attemptID}/review", h.authenticated(h.reviewAttempt))
}

// ── Middleware ──────────────────────────────────────────────────────────────

type identityKey struct{}

func identityFrom(ctx context.Context) auth.Identity {
	ident, _ := ctx.Value(identityKey{}).(auth.Identity)
	return ident
}

// authenticated requires a valid bearer token whose user is still signed in.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claimed, err := h.tokens.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ident, ok := h.users.Current(claimed.UserID)
		if !ok {
			respondError(w, http.StatusUnauthorized, "signed out")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, ident)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// CORS allows the browser quiz client to call the API from another origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
