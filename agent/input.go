package agent

import (
	"fmt"
	"time"
)

// Input keys understood by the agents.
const (
	KeySituation         = "situation"
	KeyContext           = "context"
	KeyCharacterHistory  = "character_history"
	KeyProposedEvent     = "proposed_event"
	KeyCurrentLocation   = "current_location"
	KeyWorldHistory      = "world_history"
	KeyCurrentSituation  = "current_situation"
	KeyAvailableMemories = "available_memories"
	KeyActiveCharacters  = "active_characters"
	KeyStorySoFar        = "story_so_far"
	KeyUserInput         = "user_input"
	KeySectionCount      = "section_count"
)

// Input is the per-call context handed to an agent. Missing keys read as
// empty values.
type Input map[string]any

// Memory is an event offered to the memory curator.
type Memory struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	Description  string    `json:"description"`
	Importance   float64   `json:"importance"`
	Participants []string  `json:"participants"`
}

// CharacterRef identifies an active character by id and name.
type CharacterRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationInfo describes the location an event happens in.
type LocationInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Attributes  map[string]any `json:"attributes"`
}

// String returns the value under key as text.
func (in Input) String(key string) string {
	switch v := in[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the value under key as a list of text.
func (in Input) Strings(key string) []string {
	switch v := in[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// Int returns the value under key as an int.
func (in Input) Int(key string) int {
	switch v := in[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Memories returns the memories under key.
func (in Input) Memories(key string) []Memory {
	switch v := in[key].(type) {
	case []Memory:
		return v
	case []map[string]any:
		out := make([]Memory, 0, len(v))
		for _, m := range v {
			item := Input(m)
			mem := Memory{
				ID:           item.String("id"),
				Description:  item.String("description"),
				Participants: item.Strings("participants"),
				Importance:   1.0,
			}
			if t, ok := m["time"].(time.Time); ok {
				mem.Time = t
			}
			if imp, ok := m["importance"].(float64); ok {
				mem.Importance = imp
			}
			out = append(out, mem)
		}
		return out
	default:
		return nil
	}
}

// Characters returns the active character refs under key.
func (in Input) Characters(key string) []CharacterRef {
	switch v := in[key].(type) {
	case []CharacterRef:
		return v
	case []map[string]any:
		out := make([]CharacterRef, 0, len(v))
		for _, m := range v {
			item := Input(m)
			out = append(out, CharacterRef{ID: item.String("id"), Name: item.String("name")})
		}
		return out
	default:
		return nil
	}
}

// Location returns the location under key, or nil.
func (in Input) Location(key string) *LocationInfo {
	switch v := in[key].(type) {
	case *LocationInfo:
		return v
	case LocationInfo:
		return &v
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		item := Input(v)
		loc := &LocationInfo{Name: item.String("name"), Description: item.String("description")}
		if attrs, ok := v["attributes"].(map[string]any); ok {
			loc.Attributes = attrs
		}
		return loc
	default:
		return nil
	}
}

func lastN(items []string, n int) []string {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func lastChars(s string, n int) string {
	r := []rune(s)
	if n > 0 && len(r) > n {
		return string(r[len(r)-n:])
	}
	return s
}
