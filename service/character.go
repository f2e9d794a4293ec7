package service

import (
	"context"
	"slices"
	"strings"

	"github.com/hupe1980/storymesh/core"
)

// CharacterService manages the cast of a story.
type CharacterService struct {
	base
}

// CreateCharacterInput describes a new character. A zero Importance means
// core.DefaultImportance.
type CreateCharacterInput struct {
	StoryID     string
	Name        string
	Description string
	Traits      core.Traits
	Importance  float64
}

// Create adds a character to an existing story.
func (s *CharacterService) Create(ctx context.Context, in CreateCharacterInput) (*core.Character, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.Importance < 0 {
		return nil, invalid("importance must not be negative")
	}
	if _, err := must(ctx, "story", in.StoryID, s.store.GetStory); err != nil {
		return nil, err
	}

	importance := in.Importance
	if importance == 0 {
		importance = core.DefaultImportance
	}
	now := s.now()
	c := &core.Character{
		ID:          core.NewID(),
		StoryID:     in.StoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Traits:      in.Traits.Clone(),
		Importance:  importance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCharacter(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Debug("Character created", "story_id", c.StoryID, "character_id", c.ID)
	return c, nil
}

// Get returns a character.
func (s *CharacterService) Get(ctx context.Context, id string) (*core.Character, error) {
	return must(ctx, "character", id, s.store.GetCharacter)
}

// List returns the characters of a story.
func (s *CharacterService) List(ctx context.Context, storyID string) ([]*core.Character, error) {
	return s.store.ListCharacters(ctx, storyID)
}

// ListByImportance returns the characters of a story whose importance is at
// least minImportance, most important first.
func (s *CharacterService) ListByImportance(ctx context.Context, storyID string, minImportance float64) ([]*core.Character, error) {
	all, err := s.store.ListCharacters(ctx, storyID)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(all, func(c *core.Character) bool { return c.Importance < minImportance })
	slices.SortStableFunc(out, func(a, b *core.Character) int {
		switch {
		case a.Importance > b.Importance:
			return -1
		case a.Importance < b.Importance:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// UpdateTraits replaces the traits of a character and records the transition
// against sectionID.
func (s *CharacterService) UpdateTraits(ctx context.Context, id, sectionID, description string, traits core.Traits) (*core.Character, error) {
	var updated *core.Character
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		c, err := must(ctx, "character", id, repo.GetCharacter)
		if err != nil {
			return err
		}
		previous := c.Traits.Clone()
		c.Traits = traits.Clone()
		c.UpdatedAt = s.now()
		if err := repo.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		updated = c
		return repo.CreateCharacterChange(ctx, &core.CharacterChange{
			ID:             core.NewID(),
			CharacterID:    id,
			SectionID:      sectionID,
			Description:    description,
			PreviousTraits: previous,
			NewTraits:      c.Traits.Clone(),
			CreatedAt:      s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateImportance sets the importance of a character.
func (s *CharacterService) UpdateImportance(ctx context.Context, id string, importance float64) (*core.Character, error) {
	if importance < 0 {
		return nil, invalid("importance must not be negative")
	}
	c, err := must(ctx, "character", id, s.store.GetCharacter)
	if err != nil {
		return nil, err
	}
	c.Importance = importance
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCharacter(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// History returns the most recent limit trait changes of a character, oldest
// first. A limit <= 0 returns all of them.
func (s *CharacterService) History(ctx context.Context, id string, limit int) ([]*core.CharacterChange, error) {
	if _, err := must(ctx, "character", id, s.store.GetCharacter); err != nil {
		return nil, err
	}
	return s.store.ListCharacterChanges(ctx, id, limit)
}
