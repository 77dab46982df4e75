package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/nyashahama/valentine-card/internal/api"
	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/config"
	"github.com/nyashahama/valentine-card/internal/sms"
	"github.com/nyashahama/valentine-card/internal/store"
	"github.com/nyashahama/valentine-card/internal/web"
	"github.com/nyashahama/valentine-card/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Worker, sweeper and HTTP server all
	// respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Delivery log (optional) ───────────────────────────────────────────────
	// Without DATABASE_URL deliveries are only logged.
	var recorder worker.DeliveryRecorder
	if cfg.DatabaseURL != "" {
		pool, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		st := store.New(pool)
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		recorder = st
		logger.Info("database connected, delivery log enabled")
	} else {
		logger.Info("DATABASE_URL not set, delivery log disabled")
	}

	// ── SMS (Twilio) ──────────────────────────────────────────────────────────
	// Missing credentials are not fatal: every send fails with
	// sms.ErrNotConfigured and the card still works.
	sender := sms.NewTwilioClient(sms.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioPhoneNumber,
		BaseURL:    cfg.TwilioAPIURL,
	})
	if !cfg.TwilioConfigured() {
		logger.Warn("twilio credentials missing, acceptance SMS will not be sent")
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(sender, logger)
	runner := worker.NewRunner(job, recorder, worker.RunnerConfig{
		Workers:    cfg.WorkerCount,
		JobTimeout: cfg.JobTimeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)

	// ── Widget sessions ───────────────────────────────────────────────────────
	widgets := card.NewRegistry(cfg.WidgetTTL, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	pages, err := web.ParsePages()
	if err != nil {
		return err
	}

	// send-sms waits for the worker to finish retrying. The margin covers
	// queueing behind other deliveries.
	sendTimeout := runner.Budget() + 10*time.Second

	handler := api.NewServer(
		widgets,
		runner, // *Runner satisfies card.Dispatcher
		pages,
		api.Config{
			BaseURL:           cfg.BaseURL,
			Env:               cfg.Env,
			PlacementPadding:  cfg.PlacementPadding,
			CardRatePerMinute: cfg.CardRatePerMinute,
			CardRateBurst:     cfg.CardRateBurst,
			SMSRatePerMinute:  cfg.SMSRatePerMinute,
			SMSRateBurst:      cfg.SMSRateBurst,
			RequestTimeout:    30 * time.Second,
			SendTimeout:       sendTimeout,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: sendTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Start the worker pool and the sweeper in background goroutines. Both
	// block until ctx is done.
	workerDone := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(workerDone)
	}()
	go widgets.Run(ctx, cfg.SweepInterval)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Wait for workers to finish the attempt they are on.
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker pool did not stop before the drain deadline")
	}

	logger.Info("shutdown complete", "live_widgets", widgets.Len())
	return nil
}

// openDB opens the connection pool and verifies it is reachable.
func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool. Writes are one row per accepted card.
	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}
