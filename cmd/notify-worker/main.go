package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"smartbudgets/internal/amqp"
	applog "smartbudgets/internal/log"
	"smartbudgets/internal/notify"
)

// notify-worker drains the notification queue and delivers each message.
// Delivery is currently the structured log; an email or push channel slots in
// behind the same handler.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentWorker
	logger := applog.New(cfg)
	applog.SetDefault(logger)

	logger.Info("Starting notify-worker")

	url := os.Getenv("AMQP_URL")
	if url == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}
	exchange := envOr("AMQP_EXCHANGE", "smartbudgets")
	queue := envOr("AMQP_QUEUE", "notifications")

	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	delivery := notify.SlogNotifier{}
	err = client.ConsumeNotifications(ctx, func(msg *amqp.NotificationMessage) error {
		delivery.Notify(ctx, msg.UserID, msg.Message, notify.Severity(msg.Severity))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
