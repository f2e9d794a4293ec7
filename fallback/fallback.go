// Package fallback defines the degraded values substituted when a pipeline
// stage fails, and the WithFallback combinator that applies them.
package fallback

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/hupe1980/storymesh/agent"
)

// Result is the outcome of a stage wrapped with WithFallback. When Degraded is
// true, Value holds the fallback and Err the failure that caused it.
type Result[T any] struct {
	Value    T
	Err      error
	Degraded bool
}

// Func computes a degraded value from the failure.
type Func[T any] func(err error) T

// PanicError wraps a panic recovered inside a stage.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// WithFallback runs op and substitutes fb's value when op returns an error or
// panics. It never panics itself.
func WithFallback[T any](ctx context.Context, op func(ctx context.Context) (T, error), fb Func[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r, Stack: debug.Stack()}
			res = Result[T]{Value: fb(err), Err: err, Degraded: true}
		}
	}()

	v, err := op(ctx)
	if err != nil {
		return Result[T]{Value: fb(err), Err: err, Degraded: true}
	}
	return Result[T]{Value: v}
}

func errorReasoning(err error) string {
	return fmt.Sprintf("Error occurred: %v", err)
}

// Character is the degraded reaction for a failed character call.
func Character(err error) agent.CharacterOutput {
	out := agent.DefaultCharacterOutput(errorReasoning(err))
	out.Action = "Default action due to processing error"
	return out
}

// WorldState allows the action and reports no effects.
func WorldState(err error) agent.WorldStateOutput {
	out := agent.DefaultWorldStateOutput(errorReasoning(err))
	out.Action = "Maintain world consistency"
	return out
}

// MemoryCurator selects no memories.
func MemoryCurator(err error) agent.MemoryCuratorOutput {
	out := agent.DefaultMemoryCuratorOutput(errorReasoning(err))
	out.Action = "Default memory curation"
	out.RelevanceReasoning = "Unable to retrieve memories due to error"
	return out
}

// NarrativeDirector continues the current thread at medium tension.
func NarrativeDirector(err error) agent.NarrativeDirectorOutput {
	out := agent.DefaultNarrativeDirectorOutput(errorReasoning(err))
	out.Action = "Continue existing narrative"
	return out
}

// Continuation echoes the reader's choice in a generic paragraph.
func Continuation(userInput string) string {
	action := strings.ToLower(strings.TrimSpace(userInput))
	action = strings.TrimPrefix(action, "i ")
	if action == "" {
		action = "proceed"
	}
	return fmt.Sprintf("You decide to %s.\n\n"+
		"The world around you responds to your actions. Despite some uncertainty about what happens next, you continue forward with determination.\n\n"+
		"What will you do next?", action)
}

// ContinuationFunc adapts Continuation to a Func.
func ContinuationFunc(userInput string) Func[string] {
	return func(error) string { return Continuation(userInput) }
}

// Suggestions returns the fixed suggestion list.
func Suggestions(error) []string {
	return []string{
		"Explore your surroundings",
		"Talk to someone nearby",
		"Look for clues or useful items",
	}
}

// Introduction opens a story from its genre, theme and setting.
func Introduction(genre, theme, setting string) string {
	return fmt.Sprintf("You find yourself in a %s world centered around %s. %s. What will you do next?",
		genre, theme, strings.TrimSuffix(strings.TrimSpace(setting), "."))
}
