package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/util"
	"github.com/hupe1980/storymesh/model"
)

// CharacterAgent keeps one character's personality consistent.
type CharacterAgent struct {
	BaseAgent
	characterID string
	character   string
}

// NewCharacterAgent builds the agent for c. The instruction block captures
// the character's traits at construction time.
func NewCharacterAgent(m model.Model, c *core.Character, optFns ...func(o *Options)) (*CharacterAgent, error) {
	opts := buildOptions(optFns)
	description := fmt.Sprintf("A character agent that maintains the consistent personality and actions of %s", c.Name)

	instruction, err := util.Execute(characterInstruction, map[string]any{
		"Name":                 c.Name,
		"Description":          description,
		"CharacterDescription": c.Description,
		"Traits":               formatTraits(c.Traits),
	})
	if err != nil {
		return nil, err
	}

	return &CharacterAgent{
		BaseAgent:   newBaseAgent(m, c.Name, description, instruction, opts),
		characterID: c.ID,
		character:   c.Name,
	}, nil
}

// CharacterID returns the id of the character this agent plays.
func (a *CharacterAgent) CharacterID() string { return a.characterID }

// Run asks the character to react. Recognised keys: situation, context and
// character_history (only the most recent entries are shown).
func (a *CharacterAgent) Run(ctx context.Context, in Input) (CharacterOutput, error) {
	user, err := util.Execute(characterInput, map[string]any{
		"Situation": in.String(KeySituation),
		"Context":   in.String(KeyContext),
		"History":   lastN(in.Strings(KeyCharacterHistory), a.opts.HistoryLimit),
		"Name":      a.character,
	})
	if err != nil {
		return CharacterOutput{}, err
	}
	return run(ctx, &a.BaseAgent, user, ParseCharacterOutput)
}

func formatTraits(traits core.Traits) string {
	keys := make([]string, 0, len(traits))
	for k := range traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("- %s: %v", k, traits[k])
	}
	return strings.Join(lines, "\n")
}
