package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	testutil.RunStoreSuite(t, func(*testing.T) core.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	testutil.NewStoryBuilder("s1").CharacterWithTraits("c1", "Rin", core.Traits{"mood": "calm"}).Build(t, s)

	c, err := s.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	c.Traits["mood"] = "angry"

	again, err := s.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "calm", again.Traits["mood"])
}

func TestStore_ConcurrentSectionWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	story := testutil.NewStoryBuilder("s1").Build(t, s)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(repo core.Repository) error {
				maxOrder, err := repo.MaxSectionOrder(ctx, story.ID)
				if err != nil {
					return err
				}
				return repo.CreateSection(ctx, &core.StorySection{
					StoryID: story.ID,
					Content: fmt.Sprintf("after %d", maxOrder),
					Order:   core.NextSectionOrder(maxOrder),
				})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, sections, 20)
	for i, sec := range sections {
		assert.Equal(t, i+1, sec.Order)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().CreateStory(ctx, &core.Story{Genre: "g", Theme: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}
