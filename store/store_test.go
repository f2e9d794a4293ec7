package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/store/memory"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.Storage{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = Open(ctx, config.Storage{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "story.db")})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CreateStory(ctx, &core.Story{Genre: "noir", Theme: "greed"}))

	_, err = Open(ctx, config.Storage{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
