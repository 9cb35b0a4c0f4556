package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/toeicquiz/backend/internal/store"
)

// UsersCollection holds one document per registered learner, keyed by user id.
const UsersCollection = "users"

type userDocument struct {
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"passwordHash" bson:"passwordHash"`
}

// LocalProvider authenticates against bcrypt hashes kept in the document
// store and remembers signed-in identities in memory.
type LocalProvider struct {
	store  store.DocumentStore
	logger *slog.Logger

	mu          sync.RWMutex
	active      map[string]Identity
	subscribers map[int]func(Change)
	nextSub     int
}

func NewLocalProvider(s store.DocumentStore, logger *slog.Logger) *LocalProvider {
	return &LocalProvider{
		store:       s,
		logger:      logger,
		active:      make(map[string]Identity),
		subscribers: make(map[int]func(Change)),
	}
}

// Register creates a learner account.
func (p *LocalProvider) Register(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, errors.New("email and password are required")
	}

	existing, err := p.store.Where(ctx, UsersCollection, "email", email)
	if err != nil {
		return Identity{}, fmt.Errorf("look up user: %w", err)
	}
	if len(existing) > 0 {
		return Identity{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	if err := p.store.Set(ctx, UsersCollection, userID, userDocument{Email: email, PasswordHash: string(hash)}); err != nil {
		return Identity{}, fmt.Errorf("save user: %w", err)
	}

	p.logger.Info("user registered", "user_id", userID)
	return Identity{UserID: userID, Email: email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)

	snaps, err := p.store.Where(ctx, UsersCollection, "email", email)
	if err != nil {
		return Identity{}, fmt.Errorf("look up user: %w", err)
	}
	if len(snaps) == 0 {
		return Identity{}, ErrInvalidCredentials
	}

	var user userDocument
	if err := snaps[0].DataTo(&user); err != nil {
		return Identity{}, fmt.Errorf("decode user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	ident := Identity{UserID: snaps[0].ID, Email: user.Email}

	p.mu.Lock()
	p.active[ident.UserID] = ident
	p.mu.Unlock()

	p.notify(Change{UserID: ident.UserID, Identity: &ident})
	return ident, nil
}

func (p *LocalProvider) SignOut(_ context.Context, userID string) error {
	p.mu.Lock()
	_, ok := p.active[userID]
	delete(p.active, userID)
	p.mu.Unlock()

	if !ok {
		return ErrSignedOut
	}
	p.notify(Change{UserID: userID})
	return nil
}

func (p *LocalProvider) Current(userID string) (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ident, ok := p.active[userID]
	return ident, ok
}

func (p *LocalProvider) Subscribe(fn func(Change)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.nextSub
	p.nextSub++
	p.subscribers[key] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, key)
	}
}

// notify calls subscribers outside the lock so they may call back into p.
func (p *LocalProvider) notify(c Change) {
	p.mu.RLock()
	fns := make([]func(Change), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
