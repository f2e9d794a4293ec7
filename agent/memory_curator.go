package agent

import (
	"context"

	"github.com/hupe1980/storymesh/internal/util"
	"github.com/hupe1980/storymesh/model"
)

// MemoryCuratorAgent selects past events relevant to the current moment.
type MemoryCuratorAgent struct {
	BaseAgent
}

// NewMemoryCuratorAgent builds the curator.
func NewMemoryCuratorAgent(m model.Model, optFns ...func(o *Options)) (*MemoryCuratorAgent, error) {
	opts := buildOptions(optFns)
	const (
		name        = "Memory Curator Agent"
		description = "An agent that selects and provides relevant past memories and events for the current context"
	)

	instruction, err := util.Execute(memoryCuratorInstruction, map[string]any{
		"Name":        name,
		"Description": description,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryCuratorAgent{BaseAgent: newBaseAgent(m, name, description, instruction, opts)}, nil
}

// Run selects memories. Recognised keys: current_situation,
// available_memories, active_characters and current_location.
func (a *MemoryCuratorAgent) Run(ctx context.Context, in Input) (MemoryCuratorOutput, error) {
	user, err := util.Execute(memoryCuratorInput, map[string]any{
		"Situation":  in.String(KeyCurrentSituation),
		"Characters": in.Characters(KeyActiveCharacters),
		"Location":   in.Location(KeyCurrentLocation),
		"Memories":   in.Memories(KeyAvailableMemories),
	})
	if err != nil {
		return MemoryCuratorOutput{}, err
	}
	return run(ctx, &a.BaseAgent, user, ParseMemoryCuratorOutput)
}
