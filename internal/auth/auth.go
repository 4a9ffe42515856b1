// Package auth handles account registration and session tokens. A fresh
// account is seeded with a default financial state document so the ledger
// always finds one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartbudgets/internal/core"
	"smartbudgets/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrSessionExpired     = errors.New("session expired")
)

type Service struct {
	store      store.Store
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(st store.Store, sessionTTL time.Duration) *Service {
	return &Service{
		store:      st,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register creates an account and seeds its financial state document. A zero
// monthlyIncome falls back to the default.
func (s *Service) Register(ctx context.Context, email, password string, monthlyIncome core.Money) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, fmt.Errorf("invalid email")
	}
	if len(password) < 8 {
		return store.User{}, fmt.Errorf("password too short")
	}

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return store.User{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return store.User{}, err
	}

	seed := core.NewState(monthlyIncome, s.now())
	if err := s.store.SaveState(ctx, u.ID, seed); err != nil {
		return store.User{}, fmt.Errorf("seed state: %w", err)
	}

	slog.InfoContext(ctx, "Account registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and mints a session token.
func (s *Service) Login(ctx context.Context, email, password string) (store.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.Session{}, ErrInvalidCredentials
	}

	sess := store.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}

	slog.InfoContext(ctx, "Session created", "user_id", u.ID)
	return sess, nil
}

// Logout discards the session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a bearer token to its user id. Expired sessions are
// removed as they are discovered.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	sess, err := s.store.SessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if s.now().After(sess.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to remove expired session", "error", err)
		}
		return "", ErrSessionExpired
	}
	return sess.UserID, nil
}

// Sweep drops all expired sessions. Called periodically by the server.
func (s *Service) Sweep(ctx context.Context) error {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}
