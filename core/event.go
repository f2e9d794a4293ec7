package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is a plot occurrence tied to the section it happened in and,
// optionally, to a location. Events are the raw material of the memory
// curator.
type Event struct {
	ID          string     `json:"id"`
	StoryID     string     `json:"story_id"`
	SectionID   string     `json:"section_id"`
	LocationID  string     `json:"location_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Importance  float64    `json:"importance"`
	Attributes  Attributes `json:"attributes"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Clone returns a copy of the event with its own attribute map.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Attributes = e.Attributes.Clone()
	return &cp
}

// EventParticipant links a character to an event with a role label such as
// "protagonist" or "witness".
type EventParticipant struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	CharacterID string `json:"character_id"`
	Role        string `json:"role"`
}

// NewID generates a new unique identifier for stored entities.
func NewID() string { return uuid.NewString() }
