package service

import (
	"context"
	"maps"

	"github.com/hupe1980/storymesh/core"
)

// RelationshipService manages the typed edges between characters.
type RelationshipService struct {
	base
}

// CreateRelationshipInput describes a new relationship. An empty Type means
// core.RelationshipUnknown and a nil Strength means
// core.DefaultRelationshipStrength.
type CreateRelationshipInput struct {
	SourceID   string
	TargetID   string
	Type       core.RelationshipType
	Strength   *float64
	Attributes core.Attributes
}

// UpdateRelationshipInput describes a relationship transition. Nil fields are
// left unchanged; Attributes are merged into the existing ones.
type UpdateRelationshipInput struct {
	SectionID   string
	Description string
	Type        *core.RelationshipType
	Strength    *float64
	Attributes  core.Attributes
}

func checkStrength(v float64) error {
	if v < core.MinRelationshipStrength || v > core.MaxRelationshipStrength {
		return invalid("strength %g outside [%g, %g]", v, core.MinRelationshipStrength, core.MaxRelationshipStrength)
	}
	return nil
}

// Create links two characters of the same story. At most one relationship may
// exist per ordered pair.
func (s *RelationshipService) Create(ctx context.Context, in CreateRelationshipInput) (*core.EntityRelationship, error) {
	typ, err := core.ParseRelationshipType(string(in.Type))
	if err != nil {
		return nil, err
	}
	strength := core.DefaultRelationshipStrength
	if in.Strength != nil {
		strength = *in.Strength
	}
	if err := checkStrength(strength); err != nil {
		return nil, err
	}
	if in.SourceID == in.TargetID {
		return nil, invalid("a character cannot relate to itself")
	}

	var rel *core.EntityRelationship
	err = s.store.InTx(ctx, func(repo core.Repository) error {
		source, err := must(ctx, "character", in.SourceID, repo.GetCharacter)
		if err != nil {
			return err
		}
		target, err := must(ctx, "character", in.TargetID, repo.GetCharacter)
		if err != nil {
			return err
		}
		if source.StoryID != target.StoryID {
			return invalid("characters belong to different stories")
		}
		existing, err := repo.ListRelationships(ctx, source.StoryID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.SourceID == source.ID && r.TargetID == target.ID {
				return invalid("relationship %s -> %s already exists", source.ID, target.ID)
			}
		}

		now := s.now()
		rel = &core.EntityRelationship{
			ID:         core.NewID(),
			StoryID:    source.StoryID,
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       typ,
			Strength:   strength,
			Attributes: in.Attributes.Clone(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return repo.CreateRelationship(ctx, rel)
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// Get returns a relationship.
func (s *RelationshipService) Get(ctx context.Context, id string) (*core.EntityRelationship, error) {
	return must(ctx, "relationship", id, s.store.GetRelationship)
}

// Update applies in to the relationship and records the transition.
func (s *RelationshipService) Update(ctx context.Context, id string, in UpdateRelationshipInput) (*core.EntityRelationship, error) {
	if in.Type != nil && !in.Type.Valid() {
		return nil, invalid("unknown relationship type %q", *in.Type)
	}
	if in.Strength != nil {
		if err := checkStrength(*in.Strength); err != nil {
			return nil, err
		}
	}

	var updated *core.EntityRelationship
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		rel, err := must(ctx, "relationship", id, repo.GetRelationship)
		if err != nil {
			return err
		}
		change := &core.RelationshipChange{
			ID:                 core.NewID(),
			RelationshipID:     id,
			SectionID:          in.SectionID,
			Description:        in.Description,
			PreviousType:       rel.Type,
			PreviousStrength:   rel.Strength,
			PreviousAttributes: rel.Attributes.Clone(),
		}

		if in.Type != nil {
			rel.Type = *in.Type
		}
		if in.Strength != nil {
			rel.Strength = *in.Strength
		}
		if len(in.Attributes) > 0 {
			next := rel.Attributes.Clone()
			maps.Copy(next, in.Attributes.Clone())
			rel.Attributes = next
		}
		rel.UpdatedAt = s.now()
		if err := repo.UpdateRelationship(ctx, rel); err != nil {
			return err
		}

		change.NewType = rel.Type
		change.NewStrength = rel.Strength
		change.NewAttributes = rel.Attributes.Clone()
		change.CreatedAt = rel.UpdatedAt
		updated = rel
		return repo.CreateRelationshipChange(ctx, change)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListByStory returns every relationship of a story.
func (s *RelationshipService) ListByStory(ctx context.Context, storyID string) ([]*core.EntityRelationship, error) {
	return s.store.ListRelationships(ctx, storyID)
}

// ListByCharacter returns the relationships in which the character is either
// source or target.
func (s *RelationshipService) ListByCharacter(ctx context.Context, characterID string) ([]*core.EntityRelationship, error) {
	c, err := must(ctx, "character", characterID, s.store.GetCharacter)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListRelationships(ctx, c.StoryID)
	if err != nil {
		return nil, err
	}
	var out []*core.EntityRelationship
	for _, r := range all {
		if r.SourceID == characterID || r.TargetID == characterID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Between returns the relationship from source to target, or nil when there is
// none.
func (s *RelationshipService) Between(ctx context.Context, sourceID, targetID string) (*core.EntityRelationship, error) {
	source, err := must(ctx, "character", sourceID, s.store.GetCharacter)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListRelationships(ctx, source.StoryID)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.SourceID == sourceID && r.TargetID == targetID {
			return r, nil
		}
	}
	return nil, nil
}

// History returns the most recent limit changes of a relationship, oldest
// first. A limit <= 0 returns all of them.
func (s *RelationshipService) History(ctx context.Context, id string, limit int) ([]*core.RelationshipChange, error) {
	if _, err := must(ctx, "relationship", id, s.store.GetRelationship); err != nil {
		return nil, err
	}
	return s.store.ListRelationshipChanges(ctx, id, limit)
}
