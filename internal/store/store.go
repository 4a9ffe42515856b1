// Package store persists user accounts, sessions and per-user financial
// state documents. The SQLite backend is the production path; the memory
// backend serves tests and throwaway deployments.
package store

import (
	"context"
	"errors"
	"time"

	"smartbudgets/internal/core"
)

// ErrNotFound is returned when a user, session or state document does not
// exist. Callers distinguish it from infrastructure failures.
var ErrNotFound = errors.New("not found")

// User is a registered account. PasswordHash is a bcrypt digest.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an authenticated token with an absolute expiry.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// DocumentStore loads and replaces whole financial state documents. There
// is no partial update path: every accepted mutation writes the full
// document back.
type DocumentStore interface {
	LoadState(ctx context.Context, userID string) (*core.FinancialState, error)
	SaveState(ctx context.Context, userID string, st *core.FinancialState) error
	ListUsers(ctx context.Context) ([]string, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	SessionByToken(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

// Store is the full persistence surface the application wires against.
type Store interface {
	DocumentStore
	UserStore
	SessionStore
	Close() error
}
