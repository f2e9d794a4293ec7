package orchestrator

import (
	"context"
	"strings"
	"unicode"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/metrics"
)

// SuggestionCount is the number of suggestions always returned.
const SuggestionCount = 3

var (
	openingSuggestions = []string{"Begin your adventure", "Explore your surroundings", "Talk to someone nearby"}

	genericSuggestions = []string{
		"Explore your surroundings",
		"Talk to someone nearby",
		"Look for clues or useful items",
		"Try a different approach",
		"Think about what you've learned so far",
	}

	fillerPrefixes = []string{"The character should ", "You should ", "The protagonist should "}

	actionVerbs = map[string]bool{
		"go": true, "look": true, "search": true, "talk": true, "ask": true, "find": true,
		"use": true, "take": true, "open": true, "examine": true, "investigate": true,
		"explore": true, "approach": true, "run": true, "hide": true, "fight": true,
	}

	leadVerbs = []string{"Explore", "Investigate", "Check out", "Look for", "Talk to", "Search"}
)

// GenerateStorySuggestions proposes exactly three things the reader could do
// next, derived from the director's options for the latest section. A story
// without sections gets fixed opening suggestions.
func (o *Orchestrator) GenerateStorySuggestions(ctx context.Context) (suggestions []string, err error) {
	ctx = metrics.WithStory(ctx, o.storyID)
	done := metrics.Start(ctx, o.recorder, OpSuggestions)
	defer func() { done(err == nil) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureReady(ctx); err != nil {
		o.logger.Error("Orchestrator not ready, returning fallback suggestions", "error", err)
		return fallback.Suggestions(err), err
	}

	sections, err := o.store.ListSections(ctx, o.storyID)
	if err != nil {
		return fallback.Suggestions(err), err
	}
	o.sections = sections
	if len(sections) == 0 {
		return append([]string(nil), openingSuggestions...), nil
	}

	direction := runStage(ctx, o, OpNarrativeDirection, func(ctx context.Context) (agent.NarrativeDirectorOutput, error) {
		return o.director.Run(ctx, directorInput(sections, ""))
	}, fallback.NarrativeDirector).Value

	limit := min(SuggestionCount, o.opts.NarrativeOptions)
	out := make([]string, 0, SuggestionCount)
	for _, opt := range direction.NarrativeOptions {
		if len(out) >= limit {
			break
		}
		if strings.TrimSpace(opt.Description) == "" {
			continue
		}
		out = append(out, toAction(opt.Description, o.opts.Intn))
	}
	return padSuggestions(out), nil
}

// toAction rewrites a narrative option into an imperative suggestion.
func toAction(option string, intn func(n int) int) string {
	action := strings.TrimSpace(option)
	for _, prefix := range fillerPrefixes {
		action = strings.TrimPrefix(action, prefix)
	}

	if !actionVerbs[firstWord(action)] {
		action = leadVerbs[intn(len(leadVerbs))] + " " + action
	}
	return strings.TrimSpace(action)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
}

func padSuggestions(out []string) []string {
	for len(out) < SuggestionCount {
		i := min(len(out), len(genericSuggestions)-1)
		out = append(out, genericSuggestions[i])
	}
	return out[:SuggestionCount]
}
