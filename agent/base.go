package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/model"
)

// UsageFunc observes token usage of a completed agent call.
type UsageFunc func(ctx context.Context, agent string, usage model.TokenUsage)

// Options configure agent construction. Limits that do not apply to a given
// variant are ignored by it.
type Options struct {
	Logger logging.Logger
	// OnUsage, when set, receives token usage reported by the provider.
	OnUsage UsageFunc
	// Stream requests a streaming completion; the final text is identical.
	Stream bool
	// HistoryLimit caps the character history lines rendered in a prompt.
	HistoryLimit int
	// WorldHistoryLimit caps the world change lines rendered in a prompt.
	WorldHistoryLimit int
	// StoryContextLimit caps the trailing story characters shown to the director.
	StoryContextLimit int
}

// Default prompt limits.
const (
	DefaultHistoryLimit      = 5
	DefaultWorldHistoryLimit = 5
	DefaultStoryContextLimit = 1000
)

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Logger:            logging.NoOpLogger{},
		HistoryLimit:      DefaultHistoryLimit,
		WorldHistoryLimit: DefaultWorldHistoryLimit,
		StoryContextLimit: DefaultStoryContextLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

// BaseAgent bundles the identity, the fixed instruction block and the
// completion plumbing shared by all variants.
type BaseAgent struct {
	name        string
	description string
	instruction string
	model       model.Model
	opts        Options
}

func newBaseAgent(m model.Model, name, description, instruction string, opts Options) BaseAgent {
	return BaseAgent{
		name:        name,
		description: description,
		instruction: instruction,
		model:       m,
		opts:        opts,
	}
}

// Name returns the agent's display name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the agent's role description.
func (b *BaseAgent) Description() string { return b.description }

// Instruction returns the system prompt fixed at construction.
func (b *BaseAgent) Instruction() string { return b.instruction }

// complete performs the single provider call of a Run.
func (b *BaseAgent) complete(ctx context.Context, userBlock string) (string, error) {
	req := model.Request{
		Messages: []model.Message{
			model.SystemMessage(b.instruction),
			model.UserMessage(userBlock),
		},
		Stream: b.opts.Stream,
	}

	start := time.Now()
	resp, err := model.Complete(ctx, b.model, req)
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if sl, ok := b.opts.Logger.(interface {
		LogLLMCall(string, int, time.Duration, bool, error)
	}); ok {
		sl.LogLLMCall(b.model.Info().Name, tokens, time.Since(start), err == nil, err)
	}
	if err != nil {
		return "", fmt.Errorf("%s: completion failed: %w", b.name, err)
	}
	if resp.Usage != nil && b.opts.OnUsage != nil {
		b.opts.OnUsage(ctx, b.name, *resp.Usage)
	}
	return resp.Text, nil
}

// run completes userBlock and decodes the reply with parse. A reply that
// cannot be decoded yields parse's default and a warning carrying the raw text.
func run[T any](ctx context.Context, b *BaseAgent, userBlock string, parse func(string) (T, bool)) (T, error) {
	text, err := b.complete(ctx, userBlock)
	if err != nil {
		var zero T
		return zero, err
	}

	out, ok := parse(text)
	if !ok {
		b.opts.Logger.Warn("Could not parse structured agent response", "agent", b.name, "raw", text)
	}
	return out, nil
}
