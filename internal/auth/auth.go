package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSignedOut          = errors.New("not signed in")
	ErrEmailTaken         = errors.New("email already registered")
)

// Identity is a signed-in learner.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Change is delivered to subscribers on every sign-in and sign-out.
// Identity is nil when UserID signed out.
type Change struct {
	UserID   string
	Identity *Identity
}

// Provider authenticates learners and tracks who is signed in.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, userID string) error
	Current(userID string) (Identity, bool)
	// Subscribe registers fn for identity changes and returns a function
	// that removes it.
	Subscribe(fn func(Change)) (unsubscribe func())
}
