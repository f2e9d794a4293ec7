package core

import "time"

// Location is a place within a story's world.
type Location struct {
	ID          string     `json:"id"`
	StoryID     string     `json:"story_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Attributes  Attributes `json:"attributes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a copy of the location with its own attribute map.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Attributes = l.Attributes.Clone()
	return &cp
}

// LocationChange records an attribute transition of a location.
type LocationChange struct {
	ID                 string     `json:"id"`
	LocationID         string     `json:"location_id"`
	SectionID          string     `json:"section_id"`
	Description        string     `json:"change_description"`
	PreviousAttributes Attributes `json:"previous_attributes"`
	NewAttributes      Attributes `json:"new_attributes"`
	CreatedAt          time.Time  `json:"created_at"`
}
