package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	governanceengine "agora/contexts/governance-core/governance-engine"
	postgresadapter "agora/contexts/governance-core/governance-engine/adapters/postgres"
	"agora/contexts/governance-core/governance-engine/application/commands"
	workerapp "agora/contexts/governance-core/governance-engine/application/workers"
	"agora/internal/platform/config"
	"agora/internal/platform/db"
	"agora/internal/platform/httpserver"
	"agora/internal/platform/messaging"
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
	settler      workerapp.ProposalSettler
	relayEnabled bool
	settleOn     bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func governanceConfig(cfg config.Config) commands.Config {
	engineCfg := commands.DefaultConfig(cfg.GovernanceAdminID)
	if cfg.GovernanceVotingPeriod > 0 {
		engineCfg.VotingPeriod = cfg.GovernanceVotingPeriod
	}
	if cfg.GovernanceQuorumPct > 0 {
		engineCfg.QuorumPct = cfg.GovernanceQuorumPct
	}
	if cfg.GovernanceMajorityPct > 0 {
		engineCfg.MajorityPct = cfg.GovernanceMajorityPct
	}
	engineCfg.ProposalDeposit = cfg.GovernanceProposalDeposit
	return engineCfg
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.AutoMigrate(); err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := governanceengine.NewModule(governanceengine.Dependencies{
		Members:   repo,
		Proposals: repo,
		Treasury:  repo,
		Outbox:    repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		Config:    governanceConfig(cfg),
		Logger:    logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

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

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := governanceengine.NewModule(governanceengine.Dependencies{
		Members:   repo,
		Proposals: repo,
		Treasury:  repo,
		Outbox:    repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		Config:    governanceConfig(cfg),
		Logger:    logger,
	})

	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		settler: workerapp.ProposalSettler{
			Engine:    module.Engine,
			Proposals: repo,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 50,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		settleOn:     cfg.EnableProposalSettler,
		pollInterval: 2 * time.Second,
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
		"outbox_relay_enabled", w.relayEnabled,
		"proposal_settler_enabled", w.settleOn,
	)

	for {
		if w.settleOn {
			if err := w.settler.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
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
