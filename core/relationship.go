package core

import (
	"fmt"
	"time"
)

// RelationshipType classifies the edge between two characters.
type RelationshipType string

// Known relationship types.
const (
	RelationshipFriend       RelationshipType = "friend"
	RelationshipEnemy        RelationshipType = "enemy"
	RelationshipAlly         RelationshipType = "ally"
	RelationshipRival        RelationshipType = "rival"
	RelationshipFamily       RelationshipType = "family"
	RelationshipRomantic     RelationshipType = "romantic"
	RelationshipProfessional RelationshipType = "professional"
	RelationshipUnknown      RelationshipType = "unknown"
)

// Relationship strength bounds.
const (
	MinRelationshipStrength     = 0.0
	MaxRelationshipStrength     = 10.0
	DefaultRelationshipStrength = 1.0
)

// Valid reports whether t is one of the known relationship types.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipFriend, RelationshipEnemy, RelationshipAlly, RelationshipRival,
		RelationshipFamily, RelationshipRomantic, RelationshipProfessional, RelationshipUnknown:
		return true
	}
	return false
}

// ParseRelationshipType converts s into a RelationshipType. The empty string
// maps to RelationshipUnknown.
func ParseRelationshipType(s string) (RelationshipType, error) {
	if s == "" {
		return RelationshipUnknown, nil
	}
	t := RelationshipType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown relationship type %q", ErrInvalidArgument, s)
	}
	return t, nil
}

// EntityRelationship is a typed, scored edge between two characters.
type EntityRelationship struct {
	ID         string           `json:"id"`
	StoryID    string           `json:"story_id"`
	SourceID   string           `json:"source_character_id"`
	TargetID   string           `json:"target_character_id"`
	Type       RelationshipType `json:"relationship_type"`
	Strength   float64          `json:"strength"`
	Attributes Attributes       `json:"attributes"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Clone returns a copy of the relationship with its own attribute map.
func (r *EntityRelationship) Clone() *EntityRelationship {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Attributes = r.Attributes.Clone()
	return &cp
}

// RelationshipChange records a transition of a relationship's type, strength
// or attributes.
type RelationshipChange struct {
	ID                 string           `json:"id"`
	RelationshipID     string           `json:"relationship_id"`
	SectionID          string           `json:"section_id"`
	Description        string           `json:"change_description"`
	PreviousType       RelationshipType `json:"previous_type,omitempty"`
	NewType            RelationshipType `json:"new_type,omitempty"`
	PreviousStrength   float64          `json:"previous_strength"`
	NewStrength        float64          `json:"new_strength"`
	PreviousAttributes Attributes       `json:"previous_attributes"`
	NewAttributes      Attributes       `json:"new_attributes"`
	CreatedAt          time.Time        `json:"created_at"`
}
