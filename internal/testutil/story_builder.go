package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/storymesh/core"
	"github.com/stretchr/testify/require"
)

// StoryBuilder persists a story with its cast and history for tests.
// Example:
//
//	story := NewStoryBuilder("s1").Character("c1", "Rin").Section("You wake up.").Build(t, store)
type StoryBuilder struct {
	story      core.Story
	characters []*core.Character
	sections   []string
	locations  []*core.Location
	events     []builtEvent
}

type builtEvent struct {
	event        *core.Event
	participants []string
}

// NewStoryBuilder starts a noir story with the given id.
func NewStoryBuilder(id string) *StoryBuilder {
	return &StoryBuilder{story: core.Story{
		ID:      id,
		Title:   "Test Story",
		Genre:   "noir",
		Theme:   "betrayal",
		Setting: "A rain-soaked harbour city",
	}}
}

// Genre overrides the genre, theme and setting (chainable).
func (b *StoryBuilder) Genre(genre, theme, setting string) *StoryBuilder {
	b.story.Genre, b.story.Theme, b.story.Setting = genre, theme, setting
	return b
}

// Character adds a character with empty traits (chainable).
func (b *StoryBuilder) Character(id, name string) *StoryBuilder {
	return b.CharacterWithTraits(id, name, core.Traits{})
}

// CharacterWithTraits adds a character with the given traits (chainable).
func (b *StoryBuilder) CharacterWithTraits(id, name string, traits core.Traits) *StoryBuilder {
	b.characters = append(b.characters, &core.Character{
		ID:          id,
		StoryID:     b.story.ID,
		Name:        name,
		Description: name + " is part of the story",
		Traits:      traits,
		Importance:  core.DefaultImportance,
	})
	return b
}

// Section appends a section; orders start at 1 (chainable).
func (b *StoryBuilder) Section(content string) *StoryBuilder {
	b.sections = append(b.sections, content)
	return b
}

// Location adds a location (chainable).
func (b *StoryBuilder) Location(id, name string) *StoryBuilder {
	b.locations = append(b.locations, &core.Location{
		ID:          id,
		StoryID:     b.story.ID,
		Name:        name,
		Description: name,
		Attributes:  core.Attributes{},
	})
	return b
}

// Event adds an event with participating character ids (chainable).
func (b *StoryBuilder) Event(id, description string, importance float64, participants ...string) *StoryBuilder {
	b.events = append(b.events, builtEvent{
		event: &core.Event{
			ID:          id,
			StoryID:     b.story.ID,
			Title:       id,
			Description: description,
			Importance:  importance,
		},
		participants: participants,
	})
	return b
}

// Build persists everything into repo and returns the story.
func (b *StoryBuilder) Build(t testing.TB, repo core.Repository) *core.Story {
	t.Helper()
	ctx := context.Background()

	story := b.story
	require.NoError(t, repo.CreateStory(ctx, &story))

	for i, content := range b.sections {
		require.NoError(t, repo.CreateSection(ctx, &core.StorySection{
			StoryID: story.ID,
			Content: content,
			Order:   i + 1,
		}))
	}
	for _, c := range b.characters {
		require.NoError(t, repo.CreateCharacter(ctx, c.Clone()))
	}
	for _, l := range b.locations {
		require.NoError(t, repo.CreateLocation(ctx, l.Clone()))
	}
	for _, e := range b.events {
		require.NoError(t, repo.CreateEvent(ctx, e.event.Clone()))
		for _, cid := range e.participants {
			require.NoError(t, repo.AddEventParticipant(ctx, &core.EventParticipant{
				EventID:     e.event.ID,
				CharacterID: cid,
				Role:        "participant",
			}))
		}
	}
	return &story
}
