package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartbudgets/internal/core"
)

func TestMemoryStoreStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.LoadState(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	st := core.NewState(core.Money{Cents: 450000}, time.Now())
	if err := m.SaveState(ctx, "u1", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := m.LoadState(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.MonthlyIncome.Cents != 450000 {
		t.Errorf("income = %d, want 450000", back.MonthlyIncome.Cents)
	}

	// Loads return independent copies.
	back.MonthlyIncome = core.Money{Cents: 1}
	again, err := m.LoadState(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again.MonthlyIncome.Cents != 450000 {
		t.Error("loaded document aliases a previous load")
	}
}

func TestMemoryStoreListUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	st := core.NewState(core.Money{}, time.Now())

	for _, id := range []string{"charlie", "alice", "bob"} {
		if err := m.SaveState(ctx, id, st); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	ids, err := m.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alice", "bob", "charlie"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	live := Session{Token: "tok-live", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	dead := Session{Token: "tok-dead", UserID: "u1", ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []Session{live, dead} {
		if err := m.CreateSession(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	if err := m.DeleteExpiredSessions(ctx, now); err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if _, err := m.SessionByToken(ctx, "tok-dead"); !errors.Is(err, ErrNotFound) {
		t.Error("expired session survived cleanup")
	}
	got, err := m.SessionByToken(ctx, "tok-live")
	if err != nil {
		t.Fatalf("live session lookup: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("user id = %s, want u1", got.UserID)
	}

	if err := m.DeleteSession(ctx, "tok-live"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.SessionByToken(ctx, "tok-live"); !errors.Is(err, ErrNotFound) {
		t.Error("deleted session still present")
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	u := User{ID: "u1", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	byEmail, err := m.UserByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Fatalf("by email: %v %+v", err, byEmail)
	}
	byID, err := m.UserByID(ctx, "u1")
	if err != nil || byID.Email != "a@example.com" {
		t.Fatalf("by id: %v %+v", err, byID)
	}
	if _, err := m.UserByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound for unknown email")
	}
}
