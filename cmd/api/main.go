package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/opinioncoins/backend/internal/auth"
	"github.com/opinioncoins/backend/internal/config"
	"github.com/opinioncoins/backend/internal/dashboard"
	"github.com/opinioncoins/backend/internal/db"
	"github.com/opinioncoins/backend/internal/ledger"
	"github.com/opinioncoins/backend/internal/payout"
	"github.com/opinioncoins/backend/internal/reward"
	"github.com/opinioncoins/backend/internal/router"
	"github.com/opinioncoins/backend/internal/surveys"
	"github.com/opinioncoins/backend/internal/withdraw"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.TheoremReachSecret == "" {
		slog.Warn("THEOREMREACH_SECRET_KEY is not set; the reward callback will reject all notifications")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

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
	ledgerSvc := ledger.NewService(ledgerRepo)

	// Withdrawals: payout insert func is set after the River client is
	// created (breaks the init cycle)
	var insertMu sync.Mutex
	var insertFn withdraw.InsertPayoutTxFunc
	insertPayout := func(ctx context.Context, tx pgx.Tx, args payout.ProcessPayoutArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	withdrawRepo := withdraw.NewRepository(pool)
	withdrawSvc := withdraw.NewService(withdrawRepo, ledgerSvc, insertPayout)

	workers := river.NewWorkers()
	river.AddWorker(workers, payout.NewPayoutWorker(withdrawSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverMaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args payout.ProcessPayoutArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// Surveys
	surveysRepo := surveys.NewRepository(pool)
	surveysSvc := surveys.NewService(surveysRepo, ledgerSvc)
	surveysHandler := surveys.NewHandler(surveysSvc, logger)

	// TheoremReach reward callback
	processor := reward.NewProcessor(ledgerSvc, cfg.TheoremReachSecret, logger)
	rewardHandler := reward.NewHandler(processor, logger)

	withdrawHandler := withdraw.NewHandler(withdrawSvc, logger)

	dashHandler := dashboard.NewHandler(authSvc, authRepo, ledgerSvc, surveysRepo, logger)

	apiV1Router := router.New(authHandler, dashHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiV1Router)
	RegisterV1Routes(mux, authSvc, surveysHandler, withdrawHandler, rewardHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (settles withdrawals)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
