// Package postgres provides a core.Store on PostgreSQL. Connections come from
// a pgx pool bridged to database/sql so the SQL layer is shared with the
// SQLite backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/hupe1980/storymesh/internal/sqlstore"
	"github.com/hupe1980/storymesh/store/postgres/migrations"
)

const uniqueViolation = "23505"

// Options configure the Postgres store.
type Options struct {
	// MaxConns caps the pool size; 0 keeps the pgx default.
	MaxConns int32
	// Now stamps entities created without a timestamp.
	Now func() time.Time
}

// Open connects to dsn, pings the server and applies pending migrations.
func Open(ctx context.Context, dsn string, optFns ...func(o *Options)) (*sqlstore.Store, error) {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := sqlstore.Migrate(ctx, db, sqlstore.Postgres, migrations.FS, "."); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}

	return sqlstore.New(db, sqlstore.Postgres, func(o *sqlstore.Options) {
		o.Now = opts.Now
		o.TxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
		o.OnClose = pool.Close
		o.IsDuplicate = isUniqueViolation
	}), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
