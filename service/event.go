package service

import (
	"context"
	"slices"

	"github.com/hupe1980/storymesh/core"
)

// EventService manages plot events and their participants.
type EventService struct {
	base
}

// ParticipantInput names a character taking part in an event.
type ParticipantInput struct {
	CharacterID string
	Role        string
}

// CreateEventInput describes a new event. A zero Importance means
// core.DefaultImportance.
type CreateEventInput struct {
	StoryID      string
	SectionID    string
	LocationID   string
	Title        string
	Description  string
	Importance   float64
	Attributes   core.Attributes
	Participants []ParticipantInput
}

// Participant is an event participant joined with the character's name.
type Participant struct {
	*core.EventParticipant
	Name string `json:"name"`
}

// Create stores an event together with its participants in one transaction.
func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*core.Event, error) {
	if err := required("description", in.Description); err != nil {
		return nil, err
	}
	if in.Importance < 0 {
		return nil, invalid("importance must not be negative")
	}
	importance := in.Importance
	if importance == 0 {
		importance = core.DefaultImportance
	}

	var event *core.Event
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		if _, err := must(ctx, "story", in.StoryID, repo.GetStory); err != nil {
			return err
		}
		if in.LocationID != "" {
			if _, err := must(ctx, "location", in.LocationID, repo.GetLocation); err != nil {
				return err
			}
		}

		event = &core.Event{
			ID:          core.NewID(),
			StoryID:     in.StoryID,
			SectionID:   in.SectionID,
			LocationID:  in.LocationID,
			Title:       in.Title,
			Description: in.Description,
			Importance:  importance,
			Attributes:  in.Attributes.Clone(),
			CreatedAt:   s.now(),
		}
		if err := repo.CreateEvent(ctx, event); err != nil {
			return err
		}
		for _, p := range in.Participants {
			if _, err := addParticipant(ctx, repo, event, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns an event.
func (s *EventService) Get(ctx context.Context, id string) (*core.Event, error) {
	return must(ctx, "event", id, s.store.GetEvent)
}

// AddParticipant links a character to an event. Adding a character that
// already participates returns the existing link.
func (s *EventService) AddParticipant(ctx context.Context, eventID string, in ParticipantInput) (*core.EventParticipant, error) {
	var out *core.EventParticipant
	err := s.store.InTx(ctx, func(repo core.Repository) error {
		event, err := must(ctx, "event", eventID, repo.GetEvent)
		if err != nil {
			return err
		}
		out, err = addParticipant(ctx, repo, event, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func addParticipant(ctx context.Context, repo core.Repository, event *core.Event, in ParticipantInput) (*core.EventParticipant, error) {
	c, err := must(ctx, "character", in.CharacterID, repo.GetCharacter)
	if err != nil {
		return nil, err
	}
	if c.StoryID != event.StoryID {
		return nil, invalid("character %s does not belong to story %s", c.ID, event.StoryID)
	}
	existing, err := repo.ListEventParticipants(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(existing, func(p *core.EventParticipant) bool { return p.CharacterID == c.ID }); i >= 0 {
		return existing[i], nil
	}

	p := &core.EventParticipant{
		ID:          core.NewID(),
		EventID:     event.ID,
		CharacterID: c.ID,
		Role:        in.Role,
	}
	if err := repo.AddEventParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByStory returns the events of a story with an importance of at least
// minImportance.
func (s *EventService) ListByStory(ctx context.Context, storyID string, minImportance float64) ([]*core.Event, error) {
	events, err := s.store.ListEvents(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(events, func(e *core.Event) bool { return e.Importance < minImportance }), nil
}

// Participants returns the participants of an event with their names.
func (s *EventService) Participants(ctx context.Context, eventID string) ([]*Participant, error) {
	if _, err := must(ctx, "event", eventID, s.store.GetEvent); err != nil {
		return nil, err
	}
	links, err := s.store.ListEventParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]*Participant, 0, len(links))
	for _, l := range links {
		c, err := s.store.GetCharacter(ctx, l.CharacterID)
		if err != nil {
			return nil, err
		}
		p := &Participant{EventParticipant: l}
		if c != nil {
			p.Name = c.Name
		}
		out = append(out, p)
	}
	return out, nil
}
