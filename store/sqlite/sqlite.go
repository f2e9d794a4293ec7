// Package sqlite provides a core.Store on an embedded SQLite database
// (modernc.org/sqlite, no cgo). The schema is migrated on open.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hupe1980/storymesh/internal/sqlstore"
	"github.com/hupe1980/storymesh/store/sqlite/migrations"
)

// Options configure the SQLite store.
type Options struct {
	// BusyTimeout bounds how long a writer waits on a locked database.
	BusyTimeout time.Duration
	// Now stamps entities created without a timestamp.
	Now func() time.Time
}

// Open opens (creating if needed) the database at dsn and applies pending
// migrations. dsn is a file path, ":memory:" or a sqlite:// URL.
func Open(ctx context.Context, dsn string, optFns ...func(o *Options)) (*sqlstore.Store, error) {
	opts := Options{BusyTimeout: 30 * time.Second, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	path, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single connection keeps the pragmas below in effect for every
	// statement and serialises writers.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", opts.BusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(pingCtx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if err := sqlstore.Migrate(ctx, db, sqlstore.SQLite, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	return sqlstore.New(db, sqlstore.SQLite, func(o *sqlstore.Options) {
		o.Now = opts.Now
		o.IsDuplicate = isConstraintError
	}), nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func parseDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("empty sqlite DSN")
	}
	if !strings.HasPrefix(dsn, "sqlite://") {
		return dsn, nil
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	if rest == ":memory:" || strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "./") {
		return rest, nil
	}

	path, query, hasQuery := strings.Cut(rest, "?")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	path = "./" + unescaped
	if hasQuery {
		return path + "?" + query, nil
	}
	return path, nil
}
