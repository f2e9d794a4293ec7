package storymesh

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/orchestrator"
	"github.com/hupe1980/storymesh/service"
	"github.com/hupe1980/storymesh/store/memory"
)

func TestStoryMesh_EndToEnd(t *testing.T) {
	ctx := context.Background()
	m := testutil.NewScriptedModel()
	sm := New(m, memory.New())
	defer func() { require.NoError(t, sm.Close(ctx)) }()

	story, intro, err := sm.CreateStoryWithIntroduction(ctx, service.CreateStoryInput{
		Genre:   "noir",
		Theme:   "betrayal",
		Setting: "A rain-soaked harbour city",
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.IntroReply, intro)

	suggestions, err := sm.Suggestions(ctx, story.ID)
	require.NoError(t, err)
	assert.Len(t, suggestions, orchestrator.SuggestionCount)

	text, err := sm.Continue(ctx, story.ID, "I search the office")
	require.NoError(t, err)
	assert.Equal(t, testutil.SynthesisReply, text)

	detail, err := sm.Services().Stories.Get(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, detail.Sections, 2)
	assert.Equal(t, testutil.IntroReply, detail.Sections[0].Content)
	assert.Equal(t, testutil.SynthesisReply, detail.Sections[1].Content)

	// The default protagonist was created by the first continuation.
	cast, err := sm.Services().Characters.List(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, cast, 1)
	assert.Equal(t, core.ProtagonistName, cast[0].Name)

	stats, ok := sm.Metrics().Story(story.ID)
	require.True(t, ok)
	assert.NotZero(t, stats.TotalOperations)

	assert.Equal(t, 1, sm.Registry().Len())
}

func TestStoryMesh_MissingStory(t *testing.T) {
	ctx := context.Background()
	sm := New(testutil.NewScriptedModel(), memory.New())

	text, err := sm.Continue(ctx, "nope", "I wait")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, fallback.Continuation("I wait"), text)

	suggestions, err := sm.Suggestions(ctx, "nope")
	assert.True(t, core.IsNotFound(err))
	assert.Len(t, suggestions, 3)

	_, err = sm.Introduction(ctx, "nope")
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, sm.Registry().Len())
}

func TestStoryMesh_CreateStoryValidation(t *testing.T) {
	sm := New(testutil.NewScriptedModel(), memory.New())
	_, _, err := sm.CreateStoryWithIntroduction(context.Background(), service.CreateStoryInput{Genre: "noir"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

type closeFailStore struct {
	*memory.Store
}

func (closeFailStore) Close() error { return errors.New("close failed") }

func TestStoryMesh_CloseReportsStoreError(t *testing.T) {
	sm := New(testutil.NewScriptedModel(), closeFailStore{memory.New()})
	assert.EqualError(t, sm.Close(context.Background()), "close failed")
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Agents.MaxMemories = 2

	sm, err := FromConfig(ctx, &cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, sm.Close(ctx)) }()

	assert.Equal(t, config.ProviderMock, sm.Model().Info().Provider)

	story, err := sm.Services().Stories.Create(ctx, service.CreateStoryInput{Genre: "fantasy", Theme: "courage"})
	require.NoError(t, err)

	// The mock provider echoes the prompt, which is enough to drive the pipeline.
	text, err := sm.Continue(ctx, story.ID, "I climb the pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Mock response to:"))
}

func TestFromConfig_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "tape"
	_, err := FromConfig(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestOrchestratorOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.NarrativeOptions = 2
	cfg.Orchestrator.ParallelExecution = false
	cfg.Orchestrator.MaxParallelCharacters = 4

	opts := orchestrator.DefaultOptions()
	OrchestratorOptions(&cfg)(&opts)
	assert.Equal(t, 2, opts.NarrativeOptions)
	assert.False(t, opts.ParallelExecution)
	assert.Equal(t, 4, opts.MaxParallelCharacters)
	assert.Equal(t, cfg.Orchestrator.AgentTimeout.Duration(), opts.AgentTimeout)
}
