package service

import (
	"context"
	"strings"

	"github.com/hupe1980/storymesh/core"
)

// StoryService manages stories and their sections.
type StoryService struct {
	base
}

// CreateStoryInput describes a new story.
type CreateStoryInput struct {
	Title   string
	Genre   string
	Theme   string
	Setting string
}

// StoryDetail is a story together with its sections in order.
type StoryDetail struct {
	*core.Story
	Sections []*core.StorySection `json:"sections"`
}

// Create stores a new story. Genre and theme are required.
func (s *StoryService) Create(ctx context.Context, in CreateStoryInput) (*core.Story, error) {
	if err := required("genre", in.Genre); err != nil {
		return nil, err
	}
	if err := required("theme", in.Theme); err != nil {
		return nil, err
	}

	now := s.now()
	story := &core.Story{
		ID:        core.NewID(),
		Title:     strings.TrimSpace(in.Title),
		Genre:     strings.TrimSpace(in.Genre),
		Theme:     strings.TrimSpace(in.Theme),
		Setting:   strings.TrimSpace(in.Setting),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateStory(ctx, story); err != nil {
		return nil, err
	}
	s.logger.Info("Story created", "story_id", story.ID, "genre", story.Genre)
	return story, nil
}

// Get returns the story with its sections.
func (s *StoryService) Get(ctx context.Context, id string) (*StoryDetail, error) {
	story, err := must(ctx, "story", id, s.store.GetStory)
	if err != nil {
		return nil, err
	}
	sections, err := s.store.ListSections(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StoryDetail{Story: story, Sections: sections}, nil
}

// List returns every story.
func (s *StoryService) List(ctx context.Context) ([]*core.Story, error) {
	return s.store.ListStories(ctx)
}

// Sections returns the sections of a story in order.
func (s *StoryService) Sections(ctx context.Context, storyID string) ([]*core.StorySection, error) {
	if _, err := must(ctx, "story", storyID, s.store.GetStory); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, storyID)
}

// AddSection appends a hand-written section to the story.
func (s *StoryService) AddSection(ctx context.Context, storyID, content string) (*core.StorySection, error) {
	if err := required("content", content); err != nil {
		return nil, err
	}

	var section *core.StorySection
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		if _, err := must(ctx, "story", storyID, repo.GetStory); err != nil {
			return err
		}
		maxOrder, err := repo.MaxSectionOrder(ctx, storyID)
		if err != nil {
			return err
		}
		section = &core.StorySection{
			ID:        core.NewID(),
			StoryID:   storyID,
			Content:   content,
			Order:     core.NextSectionOrder(maxOrder),
			CreatedAt: s.now(),
		}
		return repo.CreateSection(ctx, section)
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}
