package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartbudgets/internal/advisor"
	"smartbudgets/internal/amqp"
	"smartbudgets/internal/auth"
	"smartbudgets/internal/config"
	apphttp "smartbudgets/internal/http"
	"smartbudgets/internal/ledger"
	applog "smartbudgets/internal/log"
	"smartbudgets/internal/notify"
	"smartbudgets/internal/sentinel"
	"smartbudgets/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting smartbudgets")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var dataStore store.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqlStore, err := store.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		dataStore = sqlStore
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		dataStore = store.NewMemoryStore()
		logger.Info("Initialized memory backend")
	}
	defer dataStore.Close()

	// Notifications always reach the log; the broker is an optional extra
	// channel consumed by notify-worker.
	notifiers := notify.Multi{notify.SlogNotifier{}}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing with log delivery only", "error", err)
		} else {
			defer amqpClient.Close()
			notifiers = append(notifiers, notify.NewAMQPNotifier(amqpClient))
			logger.Info("AMQP notification channel initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, notifications delivered via log only")
	}

	ledgerSvc := ledger.NewService(dataStore, notifiers, ledger.AutonomyPolicy{})
	authSvc := auth.NewService(dataStore, cfg.SessionTTL)
	runner := sentinel.NewRunner(ledgerSvc, dataStore, notifiers, cfg.ScanInterval)

	var bridge *advisor.Bridge
	if cfg.GeminiAPIKey != "" {
		gemini, err := advisor.NewGeminiAdvisor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini advisor", "error", err)
			os.Exit(1)
		}
		bridge = advisor.NewBridge(ledgerSvc, gemini)
		logger.Info("Advisor initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Advisor disabled, no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(cfg.Port, ledgerSvc, authSvc, bridge)

	// A mutation kicks an immediate sentinel scan and drops the cached summary.
	ledgerSvc.OnChange(func(userID string) {
		srv.InvalidateSummary(userID)
		runner.Kick(userID)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runner.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := authSvc.Sweep(gctx); err != nil {
					logger.Error("Session sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
