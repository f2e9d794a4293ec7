// Package storymesh is the entry point for applications. A StoryMesh ties a
// completion model and a store together with the orchestrator registry, the
// entity services and the metrics collector:
//
//	sm := storymesh.New(m, memory.New())
//	story, intro, err := sm.CreateStoryWithIntroduction(ctx, service.CreateStoryInput{Genre: "noir", Theme: "betrayal"})
//	text, err := sm.Continue(ctx, story.ID, "I follow the stranger")
//
// FromConfig builds the same from a config.Config, selecting the provider,
// the storage driver, logging and tracing.
package storymesh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/internal/provider"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/metrics"
	"github.com/hupe1980/storymesh/model"
	"github.com/hupe1980/storymesh/orchestrator"
	"github.com/hupe1980/storymesh/service"
	"github.com/hupe1980/storymesh/store"
	"github.com/hupe1980/storymesh/telemetry"
)

// Options configures the StoryMesh instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Recorder receives every observation in addition to the built-in
	// Collector, e.g. a telemetry.SpanRecorder.
	Recorder metrics.Recorder
	// CacheTTL evicts orchestrators idle for longer.
	CacheTTL time.Duration
	// Orchestrator options applied to every orchestrator.
	Orchestrator []func(o *orchestrator.Options)
	// Now stamps persisted rows; defaults to time.Now.
	Now func() time.Time
}

// StoryMesh is the façade over registry, services and store.
type StoryMesh struct {
	model     model.Model
	store     core.Store
	logger    logging.Logger
	collector *metrics.Collector
	registry  *orchestrator.Registry
	services  *service.Services
	closers   []func(context.Context) error
}

// New creates a StoryMesh on m and st. The StoryMesh owns st and closes it
// in Close.
func New(m model.Model, st core.Store, optFns ...func(o *Options)) *StoryMesh {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		CacheTTL: time.Hour,
		Now:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	collector := metrics.NewCollector()
	var recorder metrics.Recorder = collector
	if opts.Recorder != nil {
		recorder = metrics.Multi{collector, opts.Recorder}
	}
	logger := logging.OrNoOp(opts.Logger)

	orchFns := append([]func(o *orchestrator.Options){func(o *orchestrator.Options) {
		o.Logger = logger
		o.Recorder = recorder
		o.Now = opts.Now
	}}, opts.Orchestrator...)

	return &StoryMesh{
		model:     m,
		store:     st,
		logger:    logger,
		collector: collector,
		registry: orchestrator.NewRegistry(m, st, func(o *orchestrator.RegistryOptions) {
			o.TTL = opts.CacheTTL
			o.Logger = logger
			o.Orchestrator = orchFns
		}),
		services: service.New(st, func(o *service.Options) {
			o.Logger = logger
			o.Now = opts.Now
		}),
	}
}

// FromConfig opens the configured store and provider, installs tracing when
// enabled and returns a ready StoryMesh. Close releases everything it opened.
func FromConfig(ctx context.Context, cfg *config.Config) (*StoryMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger()

	m, err := provider.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	sm := New(m, st, func(o *Options) {
		o.Logger = logger
		o.CacheTTL = cfg.Orchestrator.CacheTimeout.Duration()
		if cfg.Telemetry.Enabled {
			o.Recorder = telemetry.NewSpanRecorder(nil)
		}
		o.Orchestrator = append(o.Orchestrator, OrchestratorOptions(cfg))
	})
	sm.closers = append(sm.closers, shutdown)

	logger.Info("StoryMesh ready",
		"provider", m.Info().Provider,
		"model", m.Info().Name,
		"storage", cfg.Storage.Driver,
	)
	return sm, nil
}

// OrchestratorOptions maps the agent and pipeline settings of cfg onto
// orchestrator options.
func OrchestratorOptions(cfg *config.Config) func(o *orchestrator.Options) {
	return func(o *orchestrator.Options) {
		a := cfg.Agents
		o.CharacterMaxHistory = a.CharacterMaxHistory
		o.CharacterHistoryLookback = a.CharacterHistoryLookback
		o.MaxWorldChanges = a.MaxWorldChanges
		o.MaxMemories = a.MaxMemories
		o.MinTension = a.MinTension
		o.MaxTension = a.MaxTension
		o.NarrativeOptions = a.NarrativeOptions
		o.StoryContextChars = a.StoryContextChars

		o.AgentTimeout = cfg.Orchestrator.AgentTimeout.Duration()
		o.ParallelExecution = cfg.Orchestrator.ParallelExecution
		o.MaxParallelCharacters = cfg.Orchestrator.MaxParallelCharacters
	}
}

// Model returns the completion model.
func (s *StoryMesh) Model() model.Model { return s.model }

// Store returns the underlying store.
func (s *StoryMesh) Store() core.Store { return s.store }

// Services returns the entity services.
func (s *StoryMesh) Services() *service.Services { return s.services }

// Registry returns the orchestrator registry.
func (s *StoryMesh) Registry() *orchestrator.Registry { return s.registry }

// Metrics returns the in-process metrics collector.
func (s *StoryMesh) Metrics() *metrics.Collector { return s.collector }

// Continue generates and persists the next section of a story from the
// reader's input. On a story that cannot be loaded the continuation fallback
// is returned together with the error.
func (s *StoryMesh) Continue(ctx context.Context, storyID, userInput string, characterIDs ...string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, orchestrator.OpContinuation, telemetry.AttrStoryID.String(storyID))
	defer span.End()

	o, err := s.registry.GetOrCreate(ctx, storyID)
	if err != nil {
		span.RecordError(err)
		return fallback.Continuation(userInput), err
	}
	text, err := o.GenerateStoryContinuation(ctx, userInput, characterIDs...)
	if err != nil {
		span.RecordError(err)
	}
	return text, err
}

// Suggestions returns three suggested next actions for a story.
func (s *StoryMesh) Suggestions(ctx context.Context, storyID string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, orchestrator.OpSuggestions, telemetry.AttrStoryID.String(storyID))
	defer span.End()

	o, err := s.registry.GetOrCreate(ctx, storyID)
	if err != nil {
		span.RecordError(err)
		return fallback.Suggestions(err), err
	}
	return o.GenerateStorySuggestions(ctx)
}

// Introduction generates the opening scene of a story, persisting it when the
// story has no sections yet.
func (s *StoryMesh) Introduction(ctx context.Context, storyID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, orchestrator.OpIntroduction, telemetry.AttrStoryID.String(storyID))
	defer span.End()

	o, err := s.registry.GetOrCreate(ctx, storyID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return o.GenerateIntroduction(ctx)
}

// CreateStoryWithIntroduction creates a story and generates its opening scene.
func (s *StoryMesh) CreateStoryWithIntroduction(ctx context.Context, in service.CreateStoryInput) (*core.Story, string, error) {
	story, err := s.services.Stories.Create(ctx, in)
	if err != nil {
		return nil, "", err
	}
	intro, err := s.Introduction(ctx, story.ID)
	if err != nil {
		return story, "", err
	}
	return story, intro, nil
}

// Close drops every orchestrator, flushes telemetry and closes the store.
func (s *StoryMesh) Close(ctx context.Context) error {
	s.registry.Clear()

	var errs []error
	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
