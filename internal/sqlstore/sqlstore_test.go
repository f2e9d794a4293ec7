package sqlstore

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = '?' AND d = ?"
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = '?' AND d = $2", Postgres.Rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.Rebind("SELECT 1"))
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", ExtractUpMigration(content))
	assert.Equal(t, "CREATE TABLE b (id TEXT);", ExtractUpMigration("CREATE TABLE b (id TEXT);"))
	assert.Equal(t, "\nCREATE TABLE c (id TEXT);", ExtractUpMigration("-- +migrate Up\nCREATE TABLE c (id TEXT);"))
}

func TestRecent(t *testing.T) {
	query, args := recent("id, note", "changes", "owner_id", "o1", 0)
	assert.Equal(t, "SELECT id, note FROM changes WHERE owner_id = ? ORDER BY seq", query)
	assert.Equal(t, []any{"o1"}, args)

	query, args = recent("id, note", "changes", "owner_id", "o1", 3)
	assert.Contains(t, query, "ORDER BY seq DESC LIMIT ?")
	assert.Equal(t, []any{"o1", 3}, args)
}

func TestMigrate_AppliesOnce(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_notes.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE notes (id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE notes;\n")},
		"0002_seed.sql":  {Data: []byte("INSERT INTO notes (id) VALUES ('n1');")},
		"README.md":      {Data: []byte("ignored")},
	}

	require.NoError(t, Migrate(ctx, db, SQLite, fsys, "."))
	// A second run must not re-insert the seed row.
	require.NoError(t, Migrate(ctx, db, SQLite, fsys, ""))

	var notes, applied int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&notes))
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, notes)
	assert.Equal(t, 2, applied)
}

func TestCodec(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, ts, fromMillis(toMillis(ts)))

	raw, err := encodeMap(map[string]any(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	decoded, err := decodeMap[map[string]any]("")
	require.NoError(t, err)
	assert.Empty(t, decoded)

	_, err = decodeMap[map[string]any]("{broken")
	assert.Error(t, err)
}
