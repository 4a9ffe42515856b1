package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartbudgets/internal/core"
)

// MemoryStore keeps everything in process memory. State documents are
// stored in encoded form so loads return independent copies, matching the
// SQLite backend's behavior.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[string][]byte
	users    map[string]User
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[string][]byte),
		users:    make(map[string]User),
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) LoadState(_ context.Context, userID string) (*core.FinancialState, error) {
	m.mu.RLock()
	doc, ok := m.states[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return core.DecodeState(doc)
}

func (m *MemoryStore) SaveState(_ context.Context, userID string, st *core.FinancialState) error {
	doc, err := core.EncodeState(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[userID] = doc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MemoryStore) SessionByToken(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, token)
		}
	}
	return nil
}
