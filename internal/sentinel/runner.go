package sentinel

import (
	"context"
	"log/slog"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
)

// Ledger is the slice of the mutation API the runner needs: a snapshot to
// scan and the batched write-back for trigger-state changes.
type Ledger interface {
	State(ctx context.Context, userID string) (*core.FinancialState, error)
	ApplyReminderUpdates(ctx context.Context, userID string, updated []core.Reminder) error
}

// UserLister enumerates users whose documents should be scanned.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// Runner drives periodic scans over every user document, plus an immediate
// scan whenever a mutation kicks it. One scan failure never stops the loop.
type Runner struct {
	ledger   Ledger
	users    UserLister
	notifier notify.Notifier
	interval time.Duration
	kick     chan string
}

func NewRunner(l Ledger, users UserLister, notifier notify.Notifier, interval time.Duration) *Runner {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Runner{
		ledger:   l,
		users:    users,
		notifier: notifier,
		interval: interval,
		kick:     make(chan string, 64),
	}
}

// Kick requests an immediate scan of one user's document. Non-blocking; a
// full queue drops the request, which the next periodic scan covers anyway.
func (r *Runner) Kick(userID string) {
	select {
	case r.kick <- userID:
	default:
	}
}

// Run scans all users once at startup, then on every tick and every kick,
// until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Sentinel runner started", "interval", r.interval)

	r.scanAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sentinel runner stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.scanAll(ctx)
		case userID := <-r.kick:
			r.ScanUser(ctx, userID, time.Now())
		}
	}
}

func (r *Runner) scanAll(ctx context.Context) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list users for scan", "error", err)
		return
	}

	now := time.Now()
	for _, userID := range users {
		r.ScanUser(ctx, userID, now)
	}
}

// ScanUser runs one scan over one user's document, writes back any trigger
// changes as a single batch, and emits the resulting notifications.
func (r *Runner) ScanUser(ctx context.Context, userID string, now time.Time) {
	st, err := r.ledger.State(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load state for scan",
			"user_id", userID,
			"error", err)
		return
	}

	res := Scan(st, now)
	if len(res.Updated) == 0 {
		return
	}

	if err := r.ledger.ApplyReminderUpdates(ctx, userID, res.Updated); err != nil {
		slog.ErrorContext(ctx, "Failed to write back reminder updates",
			"user_id", userID,
			"error", err)
		return
	}

	for _, ev := range res.Events {
		r.notifier.Notify(ctx, userID, ev.Message, ev.Severity)
	}

	slog.InfoContext(ctx, "Sentinel scan fired",
		"user_id", userID,
		"changed", len(res.Updated),
		"events", len(res.Events))
}
