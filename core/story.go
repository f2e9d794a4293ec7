package core

import "time"

// Story is the root aggregate. Genre, theme and setting are fixed at creation
// and parameterise every agent prompt.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Genre     string    `json:"genre"`
	Theme     string    `json:"theme"`
	Setting   string    `json:"setting,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StorySection is one persisted piece of narrative. Orders start at 1 and a
// new section always receives max(existing order)+1.
type StorySection struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story_id"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// NextSectionOrder returns the order a new section must receive given the
// current maximum (0 when the story has no sections).
func NextSectionOrder(maxOrder int) int {
	if maxOrder < 0 {
		maxOrder = 0
	}
	return maxOrder + 1
}
