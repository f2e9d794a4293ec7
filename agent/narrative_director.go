package agent

import (
	"context"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/util"
	"github.com/hupe1980/storymesh/model"
)

// NarrativeDirectorAgent manages pacing and dramatic tension.
type NarrativeDirectorAgent struct {
	BaseAgent
}

// NewNarrativeDirectorAgent builds the director for story.
func NewNarrativeDirectorAgent(m model.Model, story *core.Story, optFns ...func(o *Options)) (*NarrativeDirectorAgent, error) {
	opts := buildOptions(optFns)
	const (
		name        = "Narrative Director Agent"
		description = "An agent that manages story structure, pacing, and dramatic tension"
	)

	instruction, err := util.Execute(narrativeDirectorInstruction, map[string]any{
		"Name":        name,
		"Description": description,
		"Genre":       story.Genre,
		"Theme":       story.Theme,
		"Setting":     story.Setting,
	})
	if err != nil {
		return nil, err
	}

	return &NarrativeDirectorAgent{BaseAgent: newBaseAgent(m, name, description, instruction, opts)}, nil
}

// Run proposes a direction. Recognised keys: story_so_far (only the trailing
// characters are shown), current_situation, user_input and section_count.
func (a *NarrativeDirectorAgent) Run(ctx context.Context, in Input) (NarrativeDirectorOutput, error) {
	user, err := util.Execute(narrativeDirectorInput, map[string]any{
		"SectionCount": in.Int(KeySectionCount),
		"StoryContext": lastChars(in.String(KeyStorySoFar), a.opts.StoryContextLimit),
		"Situation":    in.String(KeyCurrentSituation),
		"UserInput":    in.String(KeyUserInput),
	})
	if err != nil {
		return NarrativeDirectorOutput{}, err
	}
	return run(ctx, &a.BaseAgent, user, ParseNarrativeDirectorOutput)
}
