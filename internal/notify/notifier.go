// Package notify fans user-facing notifications out to their delivery
// channels. The ledger and the sentinel engine emit events here; they never
// talk to a transport directly.
package notify

import (
	"context"
	"log/slog"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Event is one notification addressed to one user.
type Event struct {
	UserID   string   `json:"user_id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier delivers a notification. Implementations must tolerate delivery
// failure without affecting the mutation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, severity Severity)
}

// SlogNotifier writes notifications to the structured log. It is the
// fallback channel and always present in the delivery chain.
type SlogNotifier struct{}

func (SlogNotifier) Notify(ctx context.Context, userID, message string, severity Severity) {
	slog.InfoContext(ctx, "Notification",
		"user_id", userID,
		"severity", string(severity),
		"message", message)
}

// Multi fans one event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID, message string, severity Severity) {
	for _, n := range m {
		n.Notify(ctx, userID, message, severity)
	}
}

// Discard drops every event. Used in tests that do not assert on delivery.
type Discard struct{}

func (Discard) Notify(context.Context, string, string, Severity) {}
