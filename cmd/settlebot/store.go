package main

import (
	"context"
	"fmt"

	"github.com/mmynk/settlebot/internal/config"
	"github.com/mmynk/settlebot/internal/storage"
	"github.com/mmynk/settlebot/internal/storage/postgres"
	"github.com/mmynk/settlebot/internal/storage/sqlite"
)

// openStore connects to the configured backend. Both backends apply the
// schema on open.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
