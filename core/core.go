package core

import "maps"

// Traits is the open key/value state carried by a character. Two keys have
// pipeline semantics: TraitEmotions (a label -> intensity map) and
// TraitMotivation (free text).
type Traits map[string]any

const (
	// TraitEmotions holds the character's emotional state.
	TraitEmotions = "emotions"
	// TraitMotivation holds the character's current driving motivation.
	TraitMotivation = "current_motivation"
)

// Clone returns a deep copy of the traits. Nested maps and slices are copied
// so the clone can be mutated without affecting the receiver.
func (t Traits) Clone() Traits {
	if t == nil {
		return Traits{}
	}
	return Traits(cloneMap(t))
}

// Emotions returns the emotion map as label -> intensity. Values that are not
// numeric are ignored. The result is always a fresh map.
func (t Traits) Emotions() map[string]float64 {
	out := map[string]float64{}
	switch em := t[TraitEmotions].(type) {
	case map[string]float64:
		maps.Copy(out, em)
	case map[string]any:
		for k, v := range em {
			if f, ok := toFloat(v); ok {
				out[k] = f
			}
		}
	}
	return out
}

// Motivation returns the current motivation, or "" when unset.
func (t Traits) Motivation() string {
	s, _ := t[TraitMotivation].(string)
	return s
}

// Attributes is the open key/value state of locations, relationships and events.
type Attributes map[string]any

// Clone returns a deep copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return Attributes(cloneMap(a))
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneMap(tv)
	case Traits:
		return cloneMap(tv)
	case Attributes:
		return cloneMap(tv)
	case map[string]float64:
		return maps.Clone(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), tv...)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
