package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/storymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreSuite exercises the core.Store contract against stores produced by
// open. Every subtest gets a fresh store.
func RunStoreSuite(t *testing.T, open func(t *testing.T) core.Store) {
	t.Helper()

	t.Run("stories", func(t *testing.T) { testStories(t, open(t)) })
	t.Run("sections", func(t *testing.T) { testSections(t, open(t)) })
	t.Run("characters", func(t *testing.T) { testCharacters(t, open(t)) })
	t.Run("change limits", func(t *testing.T) { testChangeLimits(t, open(t)) })
	t.Run("locations", func(t *testing.T) { testLocations(t, open(t)) })
	t.Run("relationships", func(t *testing.T) { testRelationships(t, open(t)) })
	t.Run("events", func(t *testing.T) { testEvents(t, open(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, open(t)) })
}

func testStories(t *testing.T, s core.Store) {
	ctx := context.Background()

	missing, err := s.GetStory(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	a := &core.Story{Title: "A", Genre: "fantasy", Theme: "hope", Setting: "A valley"}
	require.NoError(t, s.CreateStory(ctx, a))
	require.NotEmpty(t, a.ID)
	require.False(t, a.CreatedAt.IsZero())

	b := &core.Story{ID: "story-b", Genre: "noir", Theme: "greed"}
	require.NoError(t, s.CreateStory(ctx, b))
	assert.Error(t, s.CreateStory(ctx, &core.Story{ID: "story-b", Genre: "x", Theme: "y"}))

	got, err := s.GetStory(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "fantasy", got.Genre)
	assert.Equal(t, "hope", got.Theme)
	assert.Equal(t, "A valley", got.Setting)

	all, err := s.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, "story-b", all[1].ID)
}

func testSections(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Build(t, s)

	maxOrder, err := s.MaxSectionOrder(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, maxOrder)

	for _, order := range []int{2, 1, 5} {
		require.NoError(t, s.CreateSection(ctx, &core.StorySection{StoryID: story.ID, Content: fmt.Sprintf("section %d", order), Order: order}))
	}

	dup := &core.StorySection{StoryID: story.ID, Content: "dup", Order: 2}
	err = s.CreateSection(ctx, dup)
	require.Error(t, err)
	assert.True(t, core.IsStorage(err))

	maxOrder, err = s.MaxSectionOrder(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, maxOrder)

	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.Equal(t, []int{1, 2, 5}, []int{sections[0].Order, sections[1].Order, sections[2].Order})
	assert.Equal(t, "section 1", sections[0].Content)

	other, err := s.ListSections(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testCharacters(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Build(t, s)

	c := &core.Character{
		StoryID:     story.ID,
		Name:        "Rin",
		Description: "A dock worker",
		Traits:      core.Traits{"role": "lead", core.TraitEmotions: map[string]any{"fear": 0.5}},
		Importance:  3,
	}
	require.NoError(t, s.CreateCharacter(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := s.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rin", got.Name)
	assert.Equal(t, 3.0, got.Importance)
	assert.Equal(t, c.Traits, got.Traits)

	got.Traits[core.TraitMotivation] = "Escape"
	require.NoError(t, s.UpdateCharacter(ctx, got))

	again, err := s.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Escape", again.Traits.Motivation())

	err = s.UpdateCharacter(ctx, &core.Character{ID: "ghost", StoryID: story.ID, Name: "Ghost"})
	assert.True(t, core.IsNotFound(err))

	missing, err := s.GetCharacter(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.ListCharacters(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func testChangeLimits(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Character("c1", "Rin").Section("one").Build(t, s)
	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)

	for i := range 4 {
		require.NoError(t, s.CreateCharacterChange(ctx, &core.CharacterChange{
			CharacterID:    "c1",
			SectionID:      sections[0].ID,
			Description:    fmt.Sprintf("change %d", i),
			PreviousTraits: core.Traits{"n": float64(i)},
			NewTraits:      core.Traits{"n": float64(i + 1)},
		}))
	}

	all, err := s.ListCharacterChanges(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "change 0", all[0].Description)

	recent, err := s.ListCharacterChanges(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "change 2", recent[0].Description)
	assert.Equal(t, "change 3", recent[1].Description)
	assert.Equal(t, core.Traits{"n": 3.0}, recent[1].PreviousTraits)
	assert.Equal(t, core.Traits{"n": 4.0}, recent[1].NewTraits)
	assert.Equal(t, sections[0].ID, recent[1].SectionID)
}

func testLocations(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Section("one").Build(t, s)
	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)

	l := &core.Location{StoryID: story.ID, Name: "Pier 9", Description: "Foggy", Attributes: core.Attributes{"lit": false}}
	require.NoError(t, s.CreateLocation(ctx, l))

	l.Attributes["lit"] = true
	require.NoError(t, s.UpdateLocation(ctx, l))

	got, err := s.GetLocation(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Attributes{"lit": true}, got.Attributes)

	require.NoError(t, s.CreateLocationChange(ctx, &core.LocationChange{
		LocationID:         l.ID,
		SectionID:          sections[0].ID,
		Description:        "Lights on",
		PreviousAttributes: core.Attributes{"lit": false},
		NewAttributes:      core.Attributes{"lit": true},
	}))
	changes, err := s.ListLocationChanges(ctx, l.ID, 5)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "Lights on", changes[0].Description)

	list, err := s.ListLocations(ctx, story.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.True(t, core.IsNotFound(s.UpdateLocation(ctx, &core.Location{ID: "ghost"})))
}

func testRelationships(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Character("c1", "Rin").Character("c2", "Jun").Section("one").Build(t, s)
	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)

	rel := &core.EntityRelationship{StoryID: story.ID, SourceID: "c1", TargetID: "c2", Type: core.RelationshipFriend, Strength: 4}
	require.NoError(t, s.CreateRelationship(ctx, rel))

	rel.Type = core.RelationshipRival
	rel.Strength = 7
	require.NoError(t, s.UpdateRelationship(ctx, rel))

	got, err := s.GetRelationship(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RelationshipRival, got.Type)
	assert.Equal(t, 7.0, got.Strength)
	assert.Equal(t, "c1", got.SourceID)
	assert.Equal(t, "c2", got.TargetID)

	require.NoError(t, s.CreateRelationshipChange(ctx, &core.RelationshipChange{
		RelationshipID:   rel.ID,
		SectionID:        sections[0].ID,
		Description:      "Falling out",
		PreviousType:     core.RelationshipFriend,
		NewType:          core.RelationshipRival,
		PreviousStrength: 4,
		NewStrength:      7,
	}))
	changes, err := s.ListRelationshipChanges(ctx, rel.ID, 0)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, core.RelationshipFriend, changes[0].PreviousType)
	assert.Equal(t, 7.0, changes[0].NewStrength)

	list, err := s.ListRelationships(ctx, story.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testEvents(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Character("c1", "Rin").Build(t, s)

	e := &core.Event{StoryID: story.ID, Title: "Fire", Description: "The warehouse burns", Importance: 8, Attributes: core.Attributes{"heat": "high"}}
	require.NoError(t, s.CreateEvent(ctx, e))
	require.NoError(t, s.AddEventParticipant(ctx, &core.EventParticipant{EventID: e.ID, CharacterID: "c1", Role: "witness"}))

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 8.0, got.Importance)
	assert.Equal(t, "", got.LocationID)
	assert.Equal(t, core.Attributes{"heat": "high"}, got.Attributes)

	parts, err := s.ListEventParticipants(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "witness", parts[0].Role)

	events, err := s.ListEvents(ctx, story.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testTransactions(t *testing.T, s core.Store) {
	ctx := context.Background()
	story := NewStoryBuilder("s1").Character("c1", "Rin").Build(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(repo core.Repository) error {
		if err := repo.CreateSection(ctx, &core.StorySection{StoryID: story.ID, Content: "lost", Order: 1}); err != nil {
			return err
		}
		c, err := repo.GetCharacter(ctx, "c1")
		if err != nil {
			return err
		}
		c.Traits["x"] = "y"
		if err := repo.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	sections, err := s.ListSections(ctx, story.ID)
	require.NoError(t, err)
	assert.Empty(t, sections)
	c, err := s.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.NotContains(t, c.Traits, "x")

	err = s.InTx(ctx, func(repo core.Repository) error {
		section := &core.StorySection{StoryID: story.ID, Content: "kept", Order: 1}
		if err := repo.CreateSection(ctx, section); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		maxOrder, err := repo.MaxSectionOrder(ctx, story.ID)
		if err != nil {
			return err
		}
		if maxOrder != 1 {
			return fmt.Errorf("max order inside tx = %d", maxOrder)
		}
		return nil
	})
	require.NoError(t, err)

	sections, err = s.ListSections(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "kept", sections[0].Content)
}
