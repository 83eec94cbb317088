package core

import (
	"context"
	"fmt"

	"deskcore/internal/config"
	"deskcore/internal/infra/persistence/file"
	"deskcore/internal/infra/persistence/postgres"
	"deskcore/internal/infra/persistence/sqlite"
	"deskcore/internal/kv"
	"deskcore/internal/persistence"
	"deskcore/pkg/domain"

	"go.uber.org/zap"
)

// OpenKV opens the key-value backend selected by cfg.Driver:
//
//	memory:   process-local map (tests / ephemeral)
//	file:     one JSON file per collection under cfg.Dir, watchable
//	sqlite:   embedded sqlite file at cfg.SQLitePath
//	postgres: PostgreSQL server at cfg.PostgresDSN
func OpenKV(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (kv.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.DriverMemory:
		return kv.NewMemory(), nil
	case config.DriverFile:
		return file.Open(cfg.Dir, file.WithLogger(logger))
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// Open builds a loaded service for cfg.App over the configured storage. The
// caller closes the returned store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Service, kv.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog, err := domain.CatalogFor(cfg.App)
	if err != nil {
		return nil, nil, err
	}
	store, err := OpenKV(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	adapter := persistence.NewAdapter(store, catalog, persistence.WithLogger(logger.Named("persistence")))
	all := append([]Option{WithLogger(logger), WithAdapter(adapter)}, opts...)
	svc := NewService(catalog, all...)
	if err := svc.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}
