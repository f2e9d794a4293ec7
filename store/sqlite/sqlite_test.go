package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/sqlstore"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "story.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	testutil.RunStoreSuite(t, func(t *testing.T) core.Store { return openTemp(t) })
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "story.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	testutil.NewStoryBuilder("s1").Character("c1", "Rin").Section("You wake up.").Build(t, s)
	require.NoError(t, s.Close())

	// Migrations are recorded and not re-applied.
	s, err = Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	defer s.Close()

	sections, err := s.ListSections(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "You wake up.", sections[0].Content)
}

func TestDuplicateSectionOrder(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	story := testutil.NewStoryBuilder("s1").Section("one").Build(t, s)

	err := s.CreateSection(ctx, &core.StorySection{StoryID: story.ID, Content: "again", Order: 1})
	require.Error(t, err)
	assert.True(t, core.IsStorage(err))
	assert.True(t, errors.Is(err, sqlstore.ErrDuplicate))
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	err := s.CreateCharacter(ctx, &core.Character{StoryID: "missing", Name: "Rin"})
	require.Error(t, err)
	assert.True(t, core.IsStorage(err))
	assert.False(t, errors.Is(err, sqlstore.ErrDuplicate))
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"story.db", "story.db"},
		{"sqlite://:memory:", ":memory:"},
		{"sqlite:///var/lib/story.db", "/var/lib/story.db"},
		{"sqlite://data/story.db", "./data/story.db"},
		{"sqlite://my%20story.db?_txlock=immediate", "./my story.db?_txlock=immediate"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := parseDSN(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseDSN("  ")
	assert.Error(t, err)
}
