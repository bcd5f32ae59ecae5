package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/pixeltask/backend/internal/auth"
	"github.com/pixeltask/backend/internal/config"
	"github.com/pixeltask/backend/internal/disputes"
	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/payouts"
	"github.com/pixeltask/backend/internal/reports"
	"github.com/pixeltask/backend/internal/router"
	"github.com/pixeltask/backend/internal/settings"
	"github.com/pixeltask/backend/internal/tasks"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, ledgerRepo)

	// Settings
	settingsRepo := settings.NewRepository(pool)
	settingsSvc := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(settingsSvc, logger)

	// Payouts
	payoutsRepo := payouts.NewRepository(pool)
	payoutsSvc := payouts.NewService(payoutsRepo, ledgerRepo, ledgerRepo, settingsRepo)

	// Payout promotion runs through River; the insert func is set after the
	// client exists (breaks the init cycle).
	var insertMu sync.Mutex
	var insertFn func(ctx context.Context, requestedBy uuid.UUID) error
	enqueueProcessPending := func(ctx context.Context, requestedBy uuid.UUID) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, requestedBy)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, payouts.NewProcessPendingWorker(payoutsSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.River.MaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, requestedBy uuid.UUID) error {
		_, err := riverClient.Insert(ctx, payouts.ProcessPendingArgs{RequestedBy: requestedBy}, nil)
		return err
	}
	insertMu.Unlock()

	payoutsHandler := payouts.NewHandler(payoutsSvc, payoutsRepo, enqueueProcessPending, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authHandler := auth.NewHandler(authSvc, logger)

	// Tasks & submissions
	tasksRepo := tasks.NewRepository(pool)
	tasksSvc := tasks.NewService(tasksRepo, ledgerSvc, settingsRepo)
	tasksHandler := tasks.NewHandler(tasksSvc, logger)

	// Disputes
	disputesRepo := disputes.NewRepository(pool)
	disputesSvc := disputes.NewService(disputesRepo, ledgerSvc)
	disputesHandler := disputes.NewHandler(disputesSvc, logger)

	// Reports
	reportsRepo := reports.NewRepository(pool)
	reportsHandler := reports.NewHandler(reportsRepo, logger)

	apiHandler := router.New(router.Handlers{
		Auth:     authHandler,
		Tasks:    tasksHandler,
		Payouts:  payoutsHandler,
		Disputes: disputesHandler,
		Settings: settingsHandler,
		Reports:  reportsHandler,
	}, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiHandler)

	// Start River client (processes jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := cfg.ListenAddr()
	slog.Info("Starting HTTP server", "app", cfg.App.Name, "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
