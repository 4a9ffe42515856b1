package notify

import (
	"context"
	"log/slog"
	"time"

	"smartbudgets/internal/amqp"
)

// Publisher is the slice of the AMQP client this package needs.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// AMQPNotifier hands events to the broker for asynchronous delivery.
// Publish failures are logged and swallowed; a broken broker never blocks
// or fails a ledger mutation.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(publisher Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) Notify(ctx context.Context, userID, message string, severity Severity) {
	msg := &amqp.NotificationMessage{
		UserID:    userID,
		Message:   message,
		Severity:  string(severity),
		Timestamp: time.Now(),
	}
	if err := n.publisher.PublishNotification(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish notification",
			"error", err,
			"user_id", userID,
			"severity", string(severity))
	}
}
