package agent

import (
	"context"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/util"
	"github.com/hupe1980/storymesh/model"
)

// WorldStateAgent judges whether events fit the world's rules.
type WorldStateAgent struct {
	BaseAgent
}

// NewWorldStateAgent builds the world agent for story. rules may be nil.
func NewWorldStateAgent(m model.Model, story *core.Story, rules map[string]any, optFns ...func(o *Options)) (*WorldStateAgent, error) {
	opts := buildOptions(optFns)
	const (
		name        = "World State Agent"
		description = "An agent that maintains consistency of the fictional world's rules, physics, and environment"
	)

	instruction, err := util.Execute(worldStateInstruction, map[string]any{
		"Name":        name,
		"Description": description,
		"Genre":       story.Genre,
		"Setting":     story.Setting,
		"Rules":       formatTraits(rules),
	})
	if err != nil {
		return nil, err
	}

	return &WorldStateAgent{BaseAgent: newBaseAgent(m, name, description, instruction, opts)}, nil
}

// Run evaluates a proposed event. Recognised keys: proposed_event,
// current_location and world_history.
func (a *WorldStateAgent) Run(ctx context.Context, in Input) (WorldStateOutput, error) {
	user, err := util.Execute(worldStateInput, map[string]any{
		"Event":    in.String(KeyProposedEvent),
		"Location": in.Location(KeyCurrentLocation),
		"History":  lastN(in.Strings(KeyWorldHistory), a.opts.WorldHistoryLimit),
	})
	if err != nil {
		return WorldStateOutput{}, err
	}
	return run(ctx, &a.BaseAgent, user, ParseWorldStateOutput)
}
