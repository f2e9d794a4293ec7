package service

import (
	"context"
	"maps"

	"github.com/hupe1980/storymesh/core"
)

// LocationService manages the places of a story's world.
type LocationService struct {
	base
}

// CreateLocationInput describes a new location.
type CreateLocationInput struct {
	StoryID     string
	Name        string
	Description string
	Attributes  core.Attributes
}

// Create adds a location to an existing story.
func (s *LocationService) Create(ctx context.Context, in CreateLocationInput) (*core.Location, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if _, err := must(ctx, "story", in.StoryID, s.store.GetStory); err != nil {
		return nil, err
	}

	now := s.now()
	l := &core.Location{
		ID:          core.NewID(),
		StoryID:     in.StoryID,
		Name:        in.Name,
		Description: in.Description,
		Attributes:  in.Attributes.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateLocation(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a location.
func (s *LocationService) Get(ctx context.Context, id string) (*core.Location, error) {
	return must(ctx, "location", id, s.store.GetLocation)
}

// List returns the locations of a story.
func (s *LocationService) List(ctx context.Context, storyID string) ([]*core.Location, error) {
	return s.store.ListLocations(ctx, storyID)
}

// UpdateAttributes merges attrs into the location's attributes (new values win)
// and records the transition against sectionID.
func (s *LocationService) UpdateAttributes(ctx context.Context, id, sectionID, description string, attrs core.Attributes) (*core.Location, error) {
	var updated *core.Location
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		l, err := must(ctx, "location", id, repo.GetLocation)
		if err != nil {
			return err
		}
		previous := l.Attributes.Clone()
		next := previous.Clone()
		maps.Copy(next, attrs.Clone())
		l.Attributes = next
		l.UpdatedAt = s.now()
		if err := repo.UpdateLocation(ctx, l); err != nil {
			return err
		}
		updated = l
		return repo.CreateLocationChange(ctx, &core.LocationChange{
			ID:                 core.NewID(),
			LocationID:         id,
			SectionID:          sectionID,
			Description:        description,
			PreviousAttributes: previous,
			NewAttributes:      next.Clone(),
			CreatedAt:          s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History returns the most recent limit attribute changes of a location,
// oldest first. A limit <= 0 returns all of them.
func (s *LocationService) History(ctx context.Context, id string, limit int) ([]*core.LocationChange, error) {
	if _, err := must(ctx, "location", id, s.store.GetLocation); err != nil {
		return nil, err
	}
	return s.store.ListLocationChanges(ctx, id, limit)
}
