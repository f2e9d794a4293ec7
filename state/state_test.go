package state

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reaction(emotions map[string]float64, motivation string) agent.CharacterOutput {
	return agent.CharacterOutput{Emotions: emotions, Motivation: motivation}
}

func TestMergeReaction(t *testing.T) {
	traits := core.Traits{
		"role":             "lead",
		core.TraitEmotions: map[string]any{"fear": 0.2, "joy": 0.5},
	}

	next := MergeReaction(traits, reaction(map[string]float64{"fear": 0.9, "anger": 0.1}, "Run"))

	assert.Equal(t, map[string]any{"fear": 0.9, "joy": 0.5, "anger": 0.1}, next[core.TraitEmotions])
	assert.Equal(t, "Run", next[core.TraitMotivation])
	assert.Equal(t, "lead", next["role"])
	// Input untouched.
	assert.Equal(t, map[string]any{"fear": 0.2, "joy": 0.5}, traits[core.TraitEmotions])
	assert.NotContains(t, traits, core.TraitMotivation)
}

func TestMergeReaction_KeepsMotivationWhenEmpty(t *testing.T) {
	traits := core.Traits{core.TraitMotivation: "Hide"}
	next := MergeReaction(traits, reaction(map[string]float64{}, ""))
	assert.Equal(t, "Hide", next[core.TraitMotivation])
	assert.Equal(t, map[string]any{}, next[core.TraitEmotions])
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	story := testutil.NewStoryBuilder("s1").
		Character("c1", "Rin").
		Character("c2", "Jun").
		Section("You wake up.").
		Build(t, store)
	sections, err := store.ListSections(ctx, story.ID)
	require.NoError(t, err)

	before, err := store.GetCharacter(ctx, "c1")
	require.NoError(t, err)

	changes, err := NewUpdater().Apply(ctx, store, map[string]agent.CharacterOutput{
		"c1":    reaction(map[string]float64{"fear": 0.8}, "Stay alive"),
		"c2":    {Motivation: "ignored without emotions"},
		"ghost": reaction(map[string]float64{"joy": 1}, ""),
	}, "I search the room.", sections[0])
	require.NoError(t, err)
	require.Len(t, changes, 1)

	after, err := store.GetCharacter(ctx, "c1")
	require.NoError(t, err)

	change := changes[0]
	assert.Equal(t, "c1", change.CharacterID)
	assert.Equal(t, sections[0].ID, change.SectionID)
	assert.Equal(t, "Character state updated after I search the room.", change.Description)
	assert.Equal(t, before.Traits, change.PreviousTraits)
	assert.Equal(t, after.Traits, change.NewTraits)

	logged, err := store.ListCharacterChanges(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, after.Traits, logged[0].NewTraits)

	untouched, err := store.ListCharacterChanges(ctx, "c2", 0)
	require.NoError(t, err)
	assert.Empty(t, untouched)
}

func TestApply_NilSectionSkips(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	testutil.NewStoryBuilder("s1").Character("c1", "Rin").Build(t, store)

	changes, err := NewUpdater().Apply(ctx, store, map[string]agent.CharacterOutput{
		"c1": reaction(map[string]float64{"fear": 0.8}, "x"),
	}, "input", nil)
	require.NoError(t, err)
	assert.Empty(t, changes)

	c, err := store.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.NotContains(t, c.Traits, core.TraitEmotions)
}

func TestApply_RollsBackInsideTx(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	story := testutil.NewStoryBuilder("s1").Character("c1", "Rin").Character("c2", "Jun").Build(t, store)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(repo core.Repository) error {
		section := &core.StorySection{StoryID: story.ID, Content: "x", Order: 1}
		if err := repo.CreateSection(ctx, section); err != nil {
			return err
		}
		if _, err := NewUpdater().Apply(ctx, repo, map[string]agent.CharacterOutput{
			"c1": reaction(map[string]float64{"fear": 1}, ""),
		}, "input", section); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	changes, err := store.ListCharacterChanges(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, changes)
	c, err := store.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.NotContains(t, c.Traits, core.TraitEmotions)
}
