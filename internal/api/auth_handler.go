package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/toeicquiz/backend/internal/auth"
)

// ── Request / Response types ────────────────────────────────────────────────

type LoginRequest struct {
	Email    string `json:"email" example:"student@demo.com"`
	Password string `json:"password" example:"demo1234"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id" example:"2f1c6a0e-8f7b-4c43-9a55-0d1f3e1b7c21"`
	Email  string `json:"email" example:"student@demo.com"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// login signs a learner in and returns a bearer token.
// @Summary      Sign in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  LoginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ident, err := h.users.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("sign in failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.tokens.Issue(ident)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", ident.UserID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, UserID: ident.UserID, Email: ident.Email})
}

// logout signs the learner out. Any running quiz is abandoned.
// @Summary      Sign out
// @Tags         Auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /auth/logout [post]
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	if err := h.users.SignOut(r.Context(), ident.UserID); err != nil && !errors.Is(err, auth.ErrSignedOut) {
		h.logger.Error("sign out failed", "error", err, "user_id", ident.UserID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
