package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/store/memory"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newServices(t *testing.T) (*Services, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, func(o *Options) { o.Now = func() time.Time { return fixedNow } }), store
}

func ptr[T any](v T) *T { return &v }

func TestStories(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServices(t)

	_, err := svc.Stories.Create(ctx, CreateStoryInput{Genre: "noir"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	story, err := svc.Stories.Create(ctx, CreateStoryInput{Title: " Tides ", Genre: "noir", Theme: "betrayal"})
	require.NoError(t, err)
	assert.Equal(t, "Tides", story.Title)
	assert.Equal(t, fixedNow, story.CreatedAt)

	first, err := svc.Stories.AddSection(ctx, story.ID, "It was raining.")
	require.NoError(t, err)
	second, err := svc.Stories.AddSection(ctx, story.ID, "It kept raining.")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, 2, second.Order)

	detail, err := svc.Stories.Get(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, story.ID, detail.ID)
	require.Len(t, detail.Sections, 2)
	assert.Equal(t, "It kept raining.", detail.Sections[1].Content)

	list, err := svc.Stories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Stories.Get(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Stories.AddSection(ctx, "missing", "text")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Stories.AddSection(ctx, story.ID, "  ")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCharacters(t *testing.T) {
	ctx := context.Background()
	svc, store := newServices(t)
	testutil.NewStoryBuilder("s1").Build(t, store)

	_, err := svc.Characters.Create(ctx, CreateCharacterInput{StoryID: "missing", Name: "Rin"})
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Characters.Create(ctx, CreateCharacterInput{StoryID: "s1"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	rin, err := svc.Characters.Create(ctx, CreateCharacterInput{StoryID: "s1", Name: "Rin", Traits: core.Traits{"mood": "calm"}})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultImportance, rin.Importance)

	mara, err := svc.Characters.Create(ctx, CreateCharacterInput{StoryID: "s1", Name: "Mara", Importance: 5})
	require.NoError(t, err)
	_, err = svc.Characters.Create(ctx, CreateCharacterInput{StoryID: "s1", Name: "Extra", Importance: 0.5})
	require.NoError(t, err)

	ranked, err := svc.Characters.ListByImportance(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, mara.ID, ranked[0].ID)
	assert.Equal(t, rin.ID, ranked[1].ID)

	updated, err := svc.Characters.UpdateTraits(ctx, rin.ID, "sec-1", "grew anxious", core.Traits{"mood": "anxious"})
	require.NoError(t, err)
	assert.Equal(t, "anxious", updated.Traits["mood"])

	history, err := svc.Characters.History(ctx, rin.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "calm", history[0].PreviousTraits["mood"])
	assert.Equal(t, "anxious", history[0].NewTraits["mood"])
	assert.Equal(t, "sec-1", history[0].SectionID)

	_, err = svc.Characters.UpdateImportance(ctx, rin.ID, -1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	got, err := svc.Characters.UpdateImportance(ctx, rin.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Importance)

	_, err = svc.Characters.UpdateTraits(ctx, "ghost", "", "", nil)
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Characters.History(ctx, "ghost", 1)
	assert.True(t, core.IsNotFound(err))
}

func TestLocations(t *testing.T) {
	ctx := context.Background()
	svc, store := newServices(t)
	testutil.NewStoryBuilder("s1").Build(t, store)

	dock, err := svc.Locations.Create(ctx, CreateLocationInput{StoryID: "s1", Name: "Dock", Attributes: core.Attributes{"lit": false, "crowded": true}})
	require.NoError(t, err)

	updated, err := svc.Locations.UpdateAttributes(ctx, dock.ID, "sec-2", "lamps lit", core.Attributes{"lit": true})
	require.NoError(t, err)
	assert.Equal(t, core.Attributes{"lit": true, "crowded": true}, updated.Attributes)

	history, err := svc.Locations.History(ctx, dock.ID, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, false, history[0].PreviousAttributes["lit"])
	assert.Equal(t, true, history[0].NewAttributes["lit"])

	list, err := svc.Locations.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Locations.Get(ctx, "ghost")
	assert.True(t, core.IsNotFound(err))
}

func TestRelationships(t *testing.T) {
	ctx := context.Background()
	svc, store := newServices(t)
	testutil.NewStoryBuilder("s1").Character("a", "Rin").Character("b", "Mara").Build(t, store)
	testutil.NewStoryBuilder("s2").Character("x", "Other").Build(t, store)

	rel, err := svc.Relationships.Create(ctx, CreateRelationshipInput{SourceID: "a", TargetID: "b"})
	require.NoError(t, err)
	assert.Equal(t, core.RelationshipUnknown, rel.Type)
	assert.Equal(t, core.DefaultRelationshipStrength, rel.Strength)
	assert.Equal(t, "s1", rel.StoryID)

	tests := []struct {
		name string
		in   CreateRelationshipInput
	}{
		{"duplicate pair", CreateRelationshipInput{SourceID: "a", TargetID: "b"}},
		{"self edge", CreateRelationshipInput{SourceID: "a", TargetID: "a"}},
		{"cross story", CreateRelationshipInput{SourceID: "a", TargetID: "x"}},
		{"bad type", CreateRelationshipInput{SourceID: "b", TargetID: "a", Type: "nemesis"}},
		{"strength too high", CreateRelationshipInput{SourceID: "b", TargetID: "a", Strength: ptr(11.0)}},
		{"strength negative", CreateRelationshipInput{SourceID: "b", TargetID: "a", Strength: ptr(-1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Relationships.Create(ctx, tt.in)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
		})
	}

	_, err = svc.Relationships.Create(ctx, CreateRelationshipInput{SourceID: "a", TargetID: "ghost"})
	assert.True(t, core.IsNotFound(err))

	// The reverse direction is a distinct edge.
	reverse, err := svc.Relationships.Create(ctx, CreateRelationshipInput{SourceID: "b", TargetID: "a", Type: core.RelationshipRival, Strength: ptr(0.0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, reverse.Strength)

	updated, err := svc.Relationships.Update(ctx, rel.ID, UpdateRelationshipInput{
		SectionID:   "sec-3",
		Description: "they became friends",
		Type:        ptr(core.RelationshipFriend),
		Strength:    ptr(6.0),
		Attributes:  core.Attributes{"since": "the fire"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.RelationshipFriend, updated.Type)
	assert.Equal(t, 6.0, updated.Strength)
	assert.Equal(t, "the fire", updated.Attributes["since"])

	_, err = svc.Relationships.Update(ctx, rel.ID, UpdateRelationshipInput{Strength: ptr(10.5)})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	history, err := svc.Relationships.History(ctx, rel.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.RelationshipUnknown, history[0].PreviousType)
	assert.Equal(t, core.RelationshipFriend, history[0].NewType)
	assert.Equal(t, 1.0, history[0].PreviousStrength)
	assert.Equal(t, 6.0, history[0].NewStrength)

	between, err := svc.Relationships.Between(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, between)
	assert.Equal(t, rel.ID, between.ID)

	none, err := svc.Relationships.Between(ctx, "a", "x")
	require.NoError(t, err)
	assert.Nil(t, none)

	byChar, err := svc.Relationships.ListByCharacter(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, byChar, 2)

	all, err := svc.Relationships.ListByStory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	svc, store := newServices(t)
	testutil.NewStoryBuilder("s1").Character("a", "Rin").Character("b", "Mara").Location("l1", "Dock").Build(t, store)
	testutil.NewStoryBuilder("s2").Character("x", "Other").Build(t, store)

	ev, err := svc.Events.Create(ctx, CreateEventInput{
		StoryID:      "s1",
		LocationID:   "l1",
		Title:        "Fire",
		Description:  "The warehouse burns",
		Importance:   8,
		Participants: []ParticipantInput{{CharacterID: "a", Role: "witness"}},
	})
	require.NoError(t, err)

	minor, err := svc.Events.Create(ctx, CreateEventInput{StoryID: "s1", Description: "A gull cries"})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultImportance, minor.Importance)

	p, err := svc.Events.AddParticipant(ctx, ev.ID, ParticipantInput{CharacterID: "b", Role: "suspect"})
	require.NoError(t, err)
	again, err := svc.Events.AddParticipant(ctx, ev.ID, ParticipantInput{CharacterID: "b", Role: "other"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	_, err = svc.Events.AddParticipant(ctx, ev.ID, ParticipantInput{CharacterID: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	participants, err := svc.Events.Participants(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "Rin", participants[0].Name)
	assert.Equal(t, "witness", participants[0].Role)
	assert.Equal(t, "Mara", participants[1].Name)

	important, err := svc.Events.ListByStory(ctx, "s1", 5)
	require.NoError(t, err)
	require.Len(t, important, 1)
	assert.Equal(t, ev.ID, important[0].ID)
}

func TestEvents_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc, store := newServices(t)
	testutil.NewStoryBuilder("s1").Character("a", "Rin").Build(t, store)

	_, err := svc.Events.Create(ctx, CreateEventInput{
		StoryID:      "s1",
		Description:  "A shot rings out",
		Participants: []ParticipantInput{{CharacterID: "a"}, {CharacterID: "ghost"}},
	})
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	events, err := svc.Events.ListByStory(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMust(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := must(ctx, "thing", "1", func(context.Context, string) (*int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = must(ctx, "thing", "1", func(context.Context, string) (*int, error) { return nil, nil })
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "thing", nf.Entity)
}
