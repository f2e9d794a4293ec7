package agent

import (
	"encoding/json"

	"github.com/hupe1980/storymesh/internal/util"
)

// ParseFailureReasoning is the reasoning carried by every default record
// produced because a reply could not be decoded.
const ParseFailureReasoning = "Could not parse structured response"

// Value ranges enforced while decoding.
const (
	MinScore         = 0.0
	MaxScore         = 10.0
	MinTensionChange = -5.0
	MaxTensionChange = 5.0
	DefaultTension   = 5.0
)

// Output holds the fields every agent reply carries.
type Output struct {
	Reasoning string `json:"reasoning"`
	Action    string `json:"action"`
}

// CharacterOutput is a character's reaction to a situation. A nil Emotions
// map means the reply carried no emotions at all, which tells the state
// updater to leave the character untouched.
type CharacterOutput struct {
	Output
	Dialogue   string             `json:"dialogue,omitempty"`
	Emotions   map[string]float64 `json:"emotions"`
	Motivation string             `json:"motivation"`
}

// DefaultCharacterOutput returns the degraded character reaction.
func DefaultCharacterOutput(reasoning string) CharacterOutput {
	return CharacterOutput{
		Output:     Output{Reasoning: reasoning, Action: "React to the situation"},
		Dialogue:   "...",
		Emotions:   map[string]float64{"neutral": 1.0},
		Motivation: "Continue participation in the story",
	}
}

// WorldStateOutput is the world consistency verdict for a proposed event.
type WorldStateOutput struct {
	Output
	WorldEffects      []string `json:"world_effects"`
	ConsistencyIssues []string `json:"consistency_issues"`
	PhysicsAllowed    bool     `json:"physics_allowed"`
}

// DefaultWorldStateOutput returns the degraded world verdict, which always
// allows the action.
func DefaultWorldStateOutput(reasoning string) WorldStateOutput {
	return WorldStateOutput{
		Output:            Output{Reasoning: reasoning, Action: "Evaluate world consistency"},
		WorldEffects:      []string{"No significant effects due to processing error"},
		ConsistencyIssues: []string{},
		PhysicsAllowed:    true,
	}
}

// MemorySelection is one memory chosen by the curator.
type MemorySelection struct {
	EventID        string  `json:"event_id,omitempty"`
	Description    string  `json:"description"`
	RelevanceScore float64 `json:"relevance_score"`
	RecencyPenalty float64 `json:"recency_penalty"`
}

// MemoryCuratorOutput lists the memories relevant to the current situation.
type MemoryCuratorOutput struct {
	Output
	SelectedMemories   []MemorySelection `json:"selected_memories"`
	RelevanceReasoning string            `json:"relevance_reasoning"`
}

// DefaultMemoryCuratorOutput returns a curator result without memories.
func DefaultMemoryCuratorOutput(reasoning string) MemoryCuratorOutput {
	return MemoryCuratorOutput{
		Output:             Output{Reasoning: reasoning, Action: "Curate memories"},
		SelectedMemories:   []MemorySelection{},
		RelevanceReasoning: "Unable to determine memory relevance",
	}
}

// NarrativeOption is a candidate direction for the story.
type NarrativeOption struct {
	Description   string  `json:"description"`
	ImpactRating  float64 `json:"impact_rating"`
	TensionChange float64 `json:"tension_change"`
}

// NarrativeDirectorOutput is the director's guidance for the next section.
type NarrativeDirectorOutput struct {
	Output
	NarrativeOptions  []NarrativeOption `json:"narrative_options"`
	SelectedDirection string            `json:"selected_direction"`
	PacingAssessment  string            `json:"pacing_assessment"`
	TensionLevel      float64           `json:"tension_level"`
}

// DefaultNarrativeDirectorOutput keeps the current thread at medium tension.
func DefaultNarrativeDirectorOutput(reasoning string) NarrativeDirectorOutput {
	return NarrativeDirectorOutput{
		Output:            Output{Reasoning: reasoning, Action: "Direct narrative"},
		NarrativeOptions:  []NarrativeOption{},
		SelectedDirection: "Continue with the current narrative thread",
		PacingAssessment:  "Maintain current pacing",
		TensionLevel:      DefaultTension,
	}
}

// decode extracts the JSON object from text and decodes it into v.
func decode(text string, v any) bool {
	raw, err := util.ExtractJSON(text)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// ParseCharacterOutput decodes a character reply. On failure it returns the
// default reaction and false.
func ParseCharacterOutput(text string) (CharacterOutput, bool) {
	var out CharacterOutput
	if !decode(text, &out) {
		return DefaultCharacterOutput(ParseFailureReasoning), false
	}
	return out, true
}

// ParseWorldStateOutput decodes a world state reply. An absent
// physics_allowed field means the action is allowed.
func ParseWorldStateOutput(text string) (WorldStateOutput, bool) {
	var wire struct {
		Output
		WorldEffects      []string `json:"world_effects"`
		ConsistencyIssues []string `json:"consistency_issues"`
		PhysicsAllowed    *bool    `json:"physics_allowed"`
	}
	if !decode(text, &wire) {
		return DefaultWorldStateOutput(ParseFailureReasoning), false
	}

	out := WorldStateOutput{
		Output:            wire.Output,
		WorldEffects:      wire.WorldEffects,
		ConsistencyIssues: wire.ConsistencyIssues,
		PhysicsAllowed:    true,
	}
	if wire.PhysicsAllowed != nil {
		out.PhysicsAllowed = *wire.PhysicsAllowed
	}
	if out.WorldEffects == nil {
		out.WorldEffects = []string{}
	}
	if out.ConsistencyIssues == nil {
		out.ConsistencyIssues = []string{}
	}
	return out, true
}

// ParseMemoryCuratorOutput decodes a curator reply, clamping relevance
// scores into [0, 10].
func ParseMemoryCuratorOutput(text string) (MemoryCuratorOutput, bool) {
	var out MemoryCuratorOutput
	if !decode(text, &out) {
		return DefaultMemoryCuratorOutput(ParseFailureReasoning), false
	}
	if out.SelectedMemories == nil {
		out.SelectedMemories = []MemorySelection{}
	}
	for i := range out.SelectedMemories {
		out.SelectedMemories[i].RelevanceScore = clamp(out.SelectedMemories[i].RelevanceScore, MinScore, MaxScore)
	}
	return out, true
}

// ParseNarrativeDirectorOutput decodes a director reply, clamping ratings and
// tension into their ranges. A missing tension level reads as medium.
func ParseNarrativeDirectorOutput(text string) (NarrativeDirectorOutput, bool) {
	var wire struct {
		Output
		NarrativeOptions  []NarrativeOption `json:"narrative_options"`
		SelectedDirection string            `json:"selected_direction"`
		PacingAssessment  string            `json:"pacing_assessment"`
		TensionLevel      *float64          `json:"tension_level"`
	}
	if !decode(text, &wire) {
		return DefaultNarrativeDirectorOutput(ParseFailureReasoning), false
	}

	out := NarrativeDirectorOutput{
		Output:            wire.Output,
		NarrativeOptions:  wire.NarrativeOptions,
		SelectedDirection: wire.SelectedDirection,
		PacingAssessment:  wire.PacingAssessment,
		TensionLevel:      DefaultTension,
	}
	if wire.TensionLevel != nil {
		out.TensionLevel = clamp(*wire.TensionLevel, MinScore, MaxScore)
	}
	if out.NarrativeOptions == nil {
		out.NarrativeOptions = []NarrativeOption{}
	}
	for i := range out.NarrativeOptions {
		opt := &out.NarrativeOptions[i]
		opt.ImpactRating = clamp(opt.ImpactRating, MinScore, MaxScore)
		opt.TensionChange = clamp(opt.TensionChange, MinTensionChange, MaxTensionChange)
	}
	return out, true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
