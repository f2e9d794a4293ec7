package core

import "time"

// DefaultImportance is applied to characters and events created without one.
const DefaultImportance = 1.0

// Character is a participant in a story. Traits are mutated only through the
// state updater or the character service, both of which log a CharacterChange.
type Character struct {
	ID          string    `json:"id"`
	StoryID     string    `json:"story_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Traits      Traits    `json:"traits"`
	Importance  float64   `json:"importance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy of the character with its own traits map.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Traits = c.Traits.Clone()
	return &cp
}

// CharacterChange is an append-only audit entry for a trait transition,
// attributed to the section that caused it.
type CharacterChange struct {
	ID             string    `json:"id"`
	CharacterID    string    `json:"character_id"`
	SectionID      string    `json:"section_id"`
	Description    string    `json:"change_description"`
	PreviousTraits Traits    `json:"previous_traits"`
	NewTraits      Traits    `json:"new_traits"`
	CreatedAt      time.Time `json:"created_at"`
}

// Default protagonist created when a story is continued without characters.
const (
	ProtagonistName        = "Protagonist"
	ProtagonistDescription = "The central figure of the story, shaped by the reader's choices."
	ProtagonistImportance  = 10.0
)

// NewProtagonist builds the default character for a story with no cast.
func NewProtagonist(storyID string) *Character {
	return &Character{
		StoryID:     storyID,
		Name:        ProtagonistName,
		Description: ProtagonistDescription,
		Traits:      Traits{"role": "protagonist"},
		Importance:  ProtagonistImportance,
	}
}
