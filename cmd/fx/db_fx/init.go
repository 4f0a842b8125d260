package db_fx

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/infra"
	"hairsim/internal/repositories"
)

type Stores struct {
	fx.Out

	Documents repositories.DocumentRepository
	Ledger    repositories.LedgerRepository
	Health    infra.HealthCheck
}

var Module = fx.Provide(
	provideStores)

func provideStores(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory stores, data is lost on restart")
		return Stores{
			Documents: repositories.NewMemoryDocumentRepository(),
			Ledger:    repositories.NewMemoryLedgerRepository(),
			Health:    func(context.Context) error { return nil },
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := infra.MigrateUp(ctx, cfg.PostgresURL); err != nil {
		return Stores{}, fmt.Errorf("run migrations: %w", err)
	}

	db, err := infra.InitPostgresql(cfg.PostgresURL, cfg.IsProduction())
	if err != nil {
		return Stores{}, err
	}
	pool, err := infra.NewPgxPool(ctx, cfg.PostgresURL)
	if err != nil {
		infra.ClosePostgresql(db, log)
		return Stores{}, fmt.Errorf("connect ledger pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			infra.ClosePostgresql(db, log)
			return nil
		},
	})

	log.Info("postgres stores ready")
	return Stores{
		Documents: repositories.NewDocumentRepository(db),
		Ledger:    repositories.NewLedgerRepository(pool),
		Health: func(ctx context.Context) error {
			return infra.PingPostgresql(ctx, db)
		},
	}, nil
}
