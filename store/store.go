// Package store opens the core.Store selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/store/memory"
	"github.com/hupe1980/storymesh/store/postgres"
	"github.com/hupe1980/storymesh/store/sqlite"
)

// Open returns the store for cfg.Driver. An empty driver selects the
// in-memory store.
func Open(ctx context.Context, cfg config.Storage) (core.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.New(), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
