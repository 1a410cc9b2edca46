package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	pollledger "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/payout"
	postgresadapter "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/postgres"
	workerapp "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/workers"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	"github.com/adrianocaiafa/onchain-polls/internal/platform/config"
	"github.com/adrianocaiafa/onchain-polls/internal/platform/db"
	"github.com/adrianocaiafa/onchain-polls/internal/platform/httpserver"
	"github.com/adrianocaiafa/onchain-polls/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

// BuildAPI wires the API process. With POSTGRES_DSN set the ledger runs on
// the database-backed store; without it an in-memory module serves local
// development.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var module pollledger.Module
	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}

		repo := postgresadapter.NewRepository(pg.DB, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repo.AutoMigrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		if err := repo.EnsureConfig(ctx, entities.LedgerConfig{
			CreateFee:       cfg.CreateFee,
			BuilderShareBps: cfg.BuilderShareBps,
			DailyLimit:      cfg.DailyPollLimit,
			Operator:        cfg.OperatorAccount,
		}); err != nil {
			_ = pg.Close()
			return nil, err
		}

		module = pollledger.NewModule(pollledger.Dependencies{
			Store:   repo,
			Payouts: payout.LoggingGateway{Logger: logger},
			Clock:   postgresadapter.SystemClock{},
			IDGen:   postgresadapter.UUIDGenerator{},
			Logger:  logger,
		})
	} else {
		logger.Warn("no postgres dsn configured, using in-memory store",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		module = pollledger.NewInMemoryModule(cfg.OperatorAccount, logger)
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

// BuildWorker wires the outbox relay process. The relay needs the durable
// store, so POSTGRES_DSN is required here.
func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)
	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
