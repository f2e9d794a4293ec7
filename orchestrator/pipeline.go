package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/metrics"
	"github.com/hupe1980/storymesh/model"
)

// errEmptyCompletion is returned when the provider answers with blank text.
var errEmptyCompletion = errors.New("provider returned an empty completion")

// stageLogger is implemented by loggers that report pipeline stages.
type stageLogger interface {
	LogStage(stage string, dur time.Duration, degraded bool, err error)
}

// runStage runs op under the agent timeout, substitutes fb's value on
// failure and reports the outcome.
func runStage[T any](ctx context.Context, o *Orchestrator, op string, fn func(ctx context.Context) (T, error), fb fallback.Func[T]) fallback.Result[T] {
	if o.opts.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.AgentTimeout)
		defer cancel()
	}

	start := time.Now()
	done := metrics.Start(ctx, o.recorder, op)
	res := fallback.WithFallback(withStage(ctx, op), fn, fb)
	done(!res.Degraded)

	if sl, ok := o.logger.(stageLogger); ok {
		sl.LogStage(op, time.Since(start), res.Degraded, res.Err)
	}
	if res.Degraded {
		o.logger.Error("Stage failed, using fallback output", "stage", op, "error", res.Err)
	}
	return res
}

// GenerateStoryContinuation turns the reader's choice into the next story
// section. activeCharacterIDs selects the characters that react; when empty,
// every character of the story reacts and a default protagonist is created
// for a story without characters.
//
// Agent failures degrade their stage. When the final synthesis call fails the
// continuation fallback text is returned and nothing is persisted. Unknown
// character ids yield a NotFoundError, and failing to persist the section
// yields a StorageError alongside the generated text.
func (o *Orchestrator) GenerateStoryContinuation(ctx context.Context, userInput string, activeCharacterIDs ...string) (text string, err error) {
	ctx = metrics.WithStory(ctx, o.storyID)
	done := metrics.Start(ctx, o.recorder, OpContinuation)
	defer func() { done(err == nil) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureReady(ctx); err != nil {
		o.logger.Error("Orchestrator not ready, returning fallback continuation", "error", err)
		return fallback.Continuation(userInput), err
	}

	// 1. cast
	characters, err := o.activeCharacters(ctx, activeCharacterIDs)
	if err != nil {
		return "", err
	}

	// 2. direction
	direction := o.narrativeDirection(ctx, userInput).Value
	o.checkTension(direction)

	// 3. world consistency
	proposed := direction.SelectedDirection
	if strings.TrimSpace(proposed) == "" {
		proposed = userInput
	}
	world := o.worldConsistency(ctx, proposed).Value

	// 4. memories
	memories := o.relevantMemories(ctx, userInput, characters).Value
	if limit := o.opts.MaxMemories; limit > 0 && len(memories.SelectedMemories) > limit {
		memories.SelectedMemories = memories.SelectedMemories[:limit]
	}

	// 5. reactions
	reactions := o.characterReactions(ctx, characters, userInput, direction.SelectedDirection)

	// 6. synthesis
	synth := o.synthesize(ctx, synthesisInput{
		UserInput:   userInput,
		Direction:   direction,
		World:       world,
		Memories:    memories.SelectedMemories,
		Reactions:   reactionViews(characters, reactions),
		NoMemories:  NoMemoriesText,
		NoReactions: NoReactionsText,
	}, userInput)
	if synth.Degraded {
		return synth.Value, nil
	}

	// 7 + 8. section and state, atomically
	if err := o.persistContinuation(ctx, synth.Value, userInput, reactions); err != nil {
		return synth.Value, err
	}
	o.updater.NoteWorld(world, direction)

	// 9.
	return synth.Value, nil
}

// activeCharacters resolves the reacting cast. Callers hold mu.
func (o *Orchestrator) activeCharacters(ctx context.Context, ids []string) ([]*core.Character, error) {
	if len(ids) > 0 {
		out := make([]*core.Character, 0, len(ids))
		for _, id := range ids {
			c, err := o.store.GetCharacter(ctx, id)
			if err != nil {
				return nil, err
			}
			if c == nil || c.StoryID != o.storyID {
				return nil, core.NewNotFoundError("character", id)
			}
			out = append(out, c)
		}
		return out, nil
	}

	characters, err := o.store.ListCharacters(ctx, o.storyID)
	if err != nil {
		return nil, err
	}
	if len(characters) > 0 {
		return characters, nil
	}

	protagonist := core.NewProtagonist(o.storyID)
	protagonist.ID = core.NewID()
	now := o.opts.Now()
	protagonist.CreatedAt, protagonist.UpdatedAt = now, now
	if err := o.store.CreateCharacter(ctx, protagonist); err != nil {
		return nil, err
	}
	o.logger.Info("Created default protagonist", "character_id", protagonist.ID)
	return []*core.Character{protagonist}, nil
}

func (o *Orchestrator) narrativeDirection(ctx context.Context, userInput string) fallback.Result[agent.NarrativeDirectorOutput] {
	return runStage(ctx, o, OpNarrativeDirection, func(ctx context.Context) (agent.NarrativeDirectorOutput, error) {
		sections, err := o.store.ListSections(ctx, o.storyID)
		if err != nil {
			return agent.NarrativeDirectorOutput{}, err
		}
		o.sections = sections
		return o.director.Run(ctx, directorInput(sections, userInput))
	}, fallback.NarrativeDirector)
}

func directorInput(sections []*core.StorySection, userInput string) agent.Input {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Content
	}
	current := ""
	if len(texts) > 0 {
		current = texts[len(texts)-1]
	}
	return agent.Input{
		agent.KeyStorySoFar:       strings.Join(texts, "\n"),
		agent.KeyCurrentSituation: current,
		agent.KeyUserInput:        userInput,
		agent.KeySectionCount:     len(sections),
	}
}

func (o *Orchestrator) checkTension(direction agent.NarrativeDirectorOutput) {
	level := direction.TensionLevel
	if level < float64(o.opts.MinTension) || level > float64(o.opts.MaxTension) {
		o.logger.Info("Tension outside target band",
			"tension_level", level,
			"min_tension", o.opts.MinTension,
			"max_tension", o.opts.MaxTension,
		)
	}
}

func (o *Orchestrator) worldConsistency(ctx context.Context, proposed string) fallback.Result[agent.WorldStateOutput] {
	return runStage(ctx, o, OpWorldConsistency, func(ctx context.Context) (agent.WorldStateOutput, error) {
		locations, err := o.store.ListLocations(ctx, o.storyID)
		if err != nil {
			return agent.WorldStateOutput{}, err
		}
		var history []string
		for _, loc := range locations {
			changes, err := o.store.ListLocationChanges(ctx, loc.ID, o.opts.MaxWorldChanges)
			if err != nil {
				return agent.WorldStateOutput{}, err
			}
			for _, ch := range changes {
				history = append(history, ch.Description)
			}
		}
		return o.world.Run(ctx, agent.Input{
			agent.KeyProposedEvent: proposed,
			agent.KeyWorldHistory:  history,
		})
	}, fallback.WorldState)
}

func (o *Orchestrator) relevantMemories(ctx context.Context, situation string, characters []*core.Character) fallback.Result[agent.MemoryCuratorOutput] {
	return runStage(ctx, o, OpRelevantMemories, func(ctx context.Context) (agent.MemoryCuratorOutput, error) {
		events, err := o.store.ListEvents(ctx, o.storyID)
		if err != nil {
			return agent.MemoryCuratorOutput{}, err
		}
		available := make([]agent.Memory, 0, len(events))
		for _, e := range events {
			participants, err := o.store.ListEventParticipants(ctx, e.ID)
			if err != nil {
				return agent.MemoryCuratorOutput{}, err
			}
			ids := make([]string, len(participants))
			for i, p := range participants {
				ids[i] = p.CharacterID
			}
			available = append(available, agent.Memory{
				ID:           e.ID,
				Time:         e.CreatedAt,
				Description:  e.Description,
				Importance:   e.Importance,
				Participants: ids,
			})
		}

		refs := make([]agent.CharacterRef, len(characters))
		for i, c := range characters {
			refs[i] = agent.CharacterRef{ID: c.ID, Name: c.Name}
		}

		return o.curator.Run(ctx, agent.Input{
			agent.KeyCurrentSituation:  situation,
			agent.KeyAvailableMemories: available,
			agent.KeyActiveCharacters:  refs,
		})
	}, fallback.MemoryCurator)
}

// characterReactions asks every character concurrently. A failing character
// degrades to its fallback reaction; the others are unaffected.
func (o *Orchestrator) characterReactions(ctx context.Context, characters []*core.Character, situation, direction string) map[string]agent.CharacterOutput {
	agents := make(map[string]*agent.CharacterAgent, len(characters))
	for _, c := range characters {
		ca, err := o.characterAgent(c)
		if err != nil {
			o.logger.Error("Could not build character agent", "character_id", c.ID, "error", err)
			continue
		}
		agents[c.ID] = ca
	}

	var (
		mu        sync.Mutex
		reactions = make(map[string]agent.CharacterOutput, len(characters))
		g         errgroup.Group
	)
	switch {
	case !o.opts.ParallelExecution:
		g.SetLimit(1)
	case o.opts.MaxParallelCharacters > 0:
		g.SetLimit(o.opts.MaxParallelCharacters)
	}

	for _, c := range characters {
		ca, ok := agents[c.ID]
		if !ok {
			reactions[c.ID] = fallback.Character(errors.New("character agent unavailable"))
			continue
		}
		g.Go(func() error {
			res := runStage(ctx, o, OpCharacterReaction, func(ctx context.Context) (agent.CharacterOutput, error) {
				changes, err := o.store.ListCharacterChanges(ctx, c.ID, o.opts.CharacterHistoryLookback)
				if err != nil {
					return agent.CharacterOutput{}, err
				}
				history := make([]string, len(changes))
				for i, ch := range changes {
					history[i] = ch.Description
				}
				return ca.Run(ctx, agent.Input{
					agent.KeySituation:        situation,
					agent.KeyContext:          direction,
					agent.KeyCharacterHistory: history,
				})
			}, fallback.Character)

			mu.Lock()
			reactions[c.ID] = res.Value
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return reactions
}

func reactionViews(characters []*core.Character, reactions map[string]agent.CharacterOutput) []reactionView {
	views := make([]reactionView, 0, len(reactions))
	for _, c := range characters {
		r, ok := reactions[c.ID]
		if !ok {
			continue
		}
		views = append(views, reactionView{
			Name:     c.Name,
			Action:   r.Action,
			Dialogue: r.Dialogue,
			Emotions: formatEmotions(r.Emotions),
		})
	}
	return views
}

type synthesisInput struct {
	UserInput   string
	Direction   agent.NarrativeDirectorOutput
	World       agent.WorldStateOutput
	Memories    []agent.MemorySelection
	Reactions   []reactionView
	NoMemories  string
	NoReactions string
}

func (o *Orchestrator) synthesize(ctx context.Context, in synthesisInput, userInput string) fallback.Result[string] {
	return runStage(ctx, o, OpSynthesis, func(ctx context.Context) (string, error) {
		system, err := renderSynthesisSystem(o.story)
		if err != nil {
			return "", err
		}
		user, err := renderSynthesisUser(in)
		if err != nil {
			return "", err
		}
		return o.complete(ctx, OpSynthesis, system, user)
	}, fallback.ContinuationFunc(userInput))
}

// complete performs a free-text completion and reports its token usage.
func (o *Orchestrator) complete(ctx context.Context, op, system, user string) (string, error) {
	resp, err := model.Complete(ctx, o.model, model.Request{
		Messages: []model.Message{
			model.SystemMessage(system),
			model.UserMessage(user),
		},
		Stream: o.opts.Stream,
	})
	if err != nil {
		return "", err
	}
	if resp.Usage != nil {
		metrics.Tokens(ctx, o.recorder, op, *resp.Usage)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// persistContinuation stores the new section and applies the reactions in
// one transaction. Callers hold mu.
func (o *Orchestrator) persistContinuation(ctx context.Context, text, userInput string, reactions map[string]agent.CharacterOutput) (err error) {
	done := metrics.Start(ctx, o.recorder, OpPersist)
	defer func() { done(err == nil) }()

	var section *core.StorySection
	err = o.store.InTx(ctx, func(repo core.Repository) error {
		var err error
		section, err = appendSection(ctx, repo, o.storyID, text, o.opts.Now())
		if err != nil {
			return err
		}
		changes, err := o.updater.Apply(ctx, repo, reactions, userInput, section)
		if err != nil {
			return err
		}
		o.logger.Debug("Continuation persisted", "section_id", section.ID, "order", section.Order, "character_changes", len(changes))
		return nil
	})
	if err != nil {
		o.logger.Error("Could not persist continuation", "error", err)
		return core.NewStorageError("persist continuation", err)
	}

	o.sections = append(o.sections, section)
	return nil
}

// appendSection creates the next section of storyID on repo.
func appendSection(ctx context.Context, repo core.Repository, storyID, text string, now time.Time) (*core.StorySection, error) {
	maxOrder, err := repo.MaxSectionOrder(ctx, storyID)
	if err != nil {
		return nil, err
	}
	section := &core.StorySection{
		ID:        core.NewID(),
		StoryID:   storyID,
		Content:   text,
		Order:     core.NextSectionOrder(maxOrder),
		CreatedAt: now,
	}
	if err := repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}
