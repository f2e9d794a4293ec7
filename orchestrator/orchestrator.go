package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/metrics"
	"github.com/hupe1980/storymesh/model"
	"github.com/hupe1980/storymesh/state"
)

// State is the lifecycle state of an Orchestrator.
type State int32

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Operation names reported to the metrics recorder.
const (
	OpInitialize         = "orchestrator_initialize"
	OpContinuation       = "generate_story_continuation"
	OpSuggestions        = "generate_story_suggestions"
	OpIntroduction       = "generate_story_introduction"
	OpNarrativeDirection = "get_narrative_direction"
	OpWorldConsistency   = "check_world_consistency"
	OpRelevantMemories   = "get_relevant_memories"
	OpCharacterReaction  = "get_character_reaction"
	OpSynthesis          = "synthesize_continuation"
	OpPersist            = "persist_continuation"
)

// Options holds configuration overrides passed to New().
type Options struct {
	Logger   logging.Logger
	Recorder metrics.Recorder
	// Updater applies character reactions; a default Updater sharing Logger
	// and Now is created when nil.
	Updater *state.Updater

	// AgentTimeout bounds every provider call of the pipeline. Zero disables it.
	AgentTimeout time.Duration
	// ParallelExecution runs character agents concurrently.
	ParallelExecution bool
	// MaxParallelCharacters caps concurrent character calls; 0 is unlimited.
	MaxParallelCharacters int

	// CharacterMaxHistory is the number of history lines a character prompt shows.
	CharacterMaxHistory int
	// CharacterHistoryLookback is the number of change rows loaded per character.
	CharacterHistoryLookback int
	// MaxWorldChanges is the number of change rows loaded per location.
	MaxWorldChanges int
	// MaxMemories caps the memories passed on to synthesis.
	MaxMemories int
	// StoryContextChars is the trailing story text shown to the director.
	StoryContextChars int
	// NarrativeOptions caps the director options turned into suggestions.
	NarrativeOptions int
	// MinTension and MaxTension bound the tension band the director is
	// expected to stay in. Readings outside the band are logged.
	MinTension int
	MaxTension int

	// Stream requests streaming completions from the provider.
	Stream bool
	// Now stamps persisted rows.
	Now func() time.Time
	// Intn picks the verb prepended to suggestions; defaults to math/rand/v2.
	Intn func(n int) int
}

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return Options{
		Logger:                   logging.NoOpLogger{},
		Recorder:                 metrics.NoOp{},
		AgentTimeout:             30 * time.Second,
		ParallelExecution:        true,
		CharacterMaxHistory:      agent.DefaultHistoryLimit,
		CharacterHistoryLookback: 10,
		MaxWorldChanges:          agent.DefaultWorldHistoryLimit,
		MaxMemories:              7,
		StoryContextChars:        agent.DefaultStoryContextLimit,
		NarrativeOptions:         3,
		MinTension:               2,
		MaxTension:               8,
		Now:                      time.Now,
		Intn:                     rand.IntN,
	}
}

// Orchestrator runs the agent pipeline of one story. Pipeline operations on
// the same Orchestrator are serialised; distinct orchestrators run
// independently.
type Orchestrator struct {
	storyID  string
	model    model.Model
	store    core.Store
	opts     Options
	logger   logging.Logger
	recorder metrics.Recorder
	updater  *state.Updater

	state atomic.Int32

	// mu serialises pipeline runs and guards the fields below.
	mu         sync.Mutex
	story      *core.Story
	sections   []*core.StorySection
	director   *agent.NarrativeDirectorAgent
	world      *agent.WorldStateAgent
	curator    *agent.MemoryCuratorAgent
	characters map[string]*agent.CharacterAgent
}

// New creates an uninitialized Orchestrator for storyID.
func New(storyID string, m model.Model, store core.Store, optFns ...func(o *Options)) *Orchestrator {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StoryLogger); ok {
		logger = sl.WithComponent("orchestrator").WithStory(storyID)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}

	updater := opts.Updater
	if updater == nil {
		updater = state.NewUpdater(func(u *state.Options) {
			u.Logger = logger
			u.Now = opts.Now
		})
	}

	return &Orchestrator{
		storyID:    storyID,
		model:      m,
		store:      store,
		opts:       opts,
		logger:     logger,
		recorder:   metrics.OrNoOp(opts.Recorder),
		updater:    updater,
		characters: map[string]*agent.CharacterAgent{},
	}
}

// StoryID returns the id of the story this orchestrator serves.
func (o *Orchestrator) StoryID() string { return o.storyID }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Initialize loads the story, its sections and characters and builds the
// agents. A missing story yields a NotFoundError and leaves the orchestrator
// uninitialized.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initialize(metrics.WithStory(ctx, o.storyID))
}

func (o *Orchestrator) initialize(ctx context.Context) (err error) {
	done := metrics.Start(ctx, o.recorder, OpInitialize)
	o.state.Store(int32(StateInitializing))
	defer func() {
		done(err == nil)
		if err != nil {
			o.state.Store(int32(StateUninitialized))
			return
		}
		o.state.Store(int32(StateReady))
	}()

	story, err := o.store.GetStory(ctx, o.storyID)
	if err != nil {
		return err
	}
	if story == nil {
		return core.NewNotFoundError("story", o.storyID)
	}

	sections, err := o.store.ListSections(ctx, o.storyID)
	if err != nil {
		return err
	}
	characters, err := o.store.ListCharacters(ctx, o.storyID)
	if err != nil {
		return err
	}

	director, err := agent.NewNarrativeDirectorAgent(o.model, story, o.agentOptions)
	if err != nil {
		return fmt.Errorf("building narrative director: %w", err)
	}
	world, err := agent.NewWorldStateAgent(o.model, story, map[string]any{}, o.agentOptions)
	if err != nil {
		return fmt.Errorf("building world state agent: %w", err)
	}
	curator, err := agent.NewMemoryCuratorAgent(o.model, o.agentOptions)
	if err != nil {
		return fmt.Errorf("building memory curator: %w", err)
	}

	agents := make(map[string]*agent.CharacterAgent, len(characters))
	for _, c := range characters {
		ca, err := agent.NewCharacterAgent(o.model, c, o.agentOptions)
		if err != nil {
			return fmt.Errorf("building character agent %s: %w", c.ID, err)
		}
		agents[c.ID] = ca
	}

	o.story = story
	o.sections = sections
	o.director = director
	o.world = world
	o.curator = curator
	o.characters = agents

	o.logger.Info("Orchestrator initialized",
		"sections", len(sections),
		"characters", len(characters),
	)
	return nil
}

// ensureReady re-initializes when a previous attempt failed. Callers hold mu.
func (o *Orchestrator) ensureReady(ctx context.Context) error {
	if o.State() == StateReady {
		return nil
	}
	return o.initialize(ctx)
}

// characterAgent returns the agent for c, building it for characters added
// after initialization. Callers hold mu.
func (o *Orchestrator) characterAgent(c *core.Character) (*agent.CharacterAgent, error) {
	if ca, ok := o.characters[c.ID]; ok {
		return ca, nil
	}
	ca, err := agent.NewCharacterAgent(o.model, c, o.agentOptions)
	if err != nil {
		return nil, fmt.Errorf("building character agent %s: %w", c.ID, err)
	}
	o.characters[c.ID] = ca
	return ca, nil
}

func (o *Orchestrator) agentOptions(a *agent.Options) {
	a.Logger = o.logger
	a.Stream = o.opts.Stream
	a.HistoryLimit = o.opts.CharacterMaxHistory
	a.WorldHistoryLimit = o.opts.MaxWorldChanges
	a.StoryContextLimit = o.opts.StoryContextChars
	a.OnUsage = func(ctx context.Context, name string, usage model.TokenUsage) {
		op := stageFromContext(ctx)
		if op == "" {
			op = name
		}
		metrics.Tokens(ctx, o.recorder, op, usage)
	}
}

type stageKey struct{}

func withStage(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, stageKey{}, op)
}

func stageFromContext(ctx context.Context) string {
	op, _ := ctx.Value(stageKey{}).(string)
	return op
}
