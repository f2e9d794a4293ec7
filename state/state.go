// Package state applies the side effects of a generated section to the
// story's persisted entities. Every mutation is recorded as an append-only
// change row attributed to the section that caused it.
package state

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
)

// Options configure an Updater.
type Options struct {
	Logger logging.Logger
	// Now stamps change rows; defaults to time.Now.
	Now func() time.Time
}

// Updater folds character reactions into character traits.
type Updater struct {
	logger logging.Logger
	now    func() time.Time
}

// NewUpdater creates an Updater.
func NewUpdater(optFns ...func(o *Options)) *Updater {
	opts := Options{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Updater{logger: logging.OrNoOp(opts.Logger), now: opts.Now}
}

// ChangeDescription is the description recorded for a reaction-driven update.
func ChangeDescription(userInput string) string {
	return fmt.Sprintf("Character state updated after %s", userInput)
}

// Apply merges each reaction carrying an emotions map into its character and
// appends one CharacterChange per updated character. Reactions are applied in
// character id order. Characters that no longer exist are skipped. A nil
// section skips the whole update. The first repository error aborts Apply;
// run it inside Store.InTx so nothing is left half-applied.
func (u *Updater) Apply(
	ctx context.Context,
	repo core.Repository,
	reactions map[string]agent.CharacterOutput,
	userInput string,
	section *core.StorySection,
) ([]*core.CharacterChange, error) {
	if section == nil {
		u.logger.Debug("No target section, skipping state update")
		return nil, nil
	}

	var changes []*core.CharacterChange
	for _, id := range slices.Sorted(maps.Keys(reactions)) {
		reaction := reactions[id]
		if reaction.Emotions == nil {
			continue
		}

		character, err := repo.GetCharacter(ctx, id)
		if err != nil {
			return changes, err
		}
		if character == nil {
			u.logger.Warn("Character vanished before state update", "character_id", id)
			continue
		}

		previous := character.Traits.Clone()
		next := MergeReaction(previous, reaction)

		character.Traits = next
		character.UpdatedAt = u.now()
		if err := repo.UpdateCharacter(ctx, character); err != nil {
			return changes, err
		}

		change := &core.CharacterChange{
			ID:             core.NewID(),
			CharacterID:    id,
			SectionID:      section.ID,
			Description:    ChangeDescription(userInput),
			PreviousTraits: previous,
			NewTraits:      next.Clone(),
			CreatedAt:      u.now(),
		}
		if err := repo.CreateCharacterChange(ctx, change); err != nil {
			return changes, err
		}
		changes = append(changes, change)
	}

	u.logger.Debug("Applied character reactions", "section_id", section.ID, "changes", len(changes))
	return changes, nil
}

// NoteWorld records world effects and tension for diagnosis. Neither is
// persisted.
func (u *Updater) NoteWorld(world agent.WorldStateOutput, direction agent.NarrativeDirectorOutput) {
	u.logger.Debug("World effects not persisted",
		"world_effects", world.WorldEffects,
		"physics_allowed", world.PhysicsAllowed,
		"tension_level", direction.TensionLevel,
	)
}

// MergeReaction returns a copy of traits with the reaction's emotions
// shallow-merged into traits.emotions (new values win on collision) and
// current_motivation set when the reaction names one. traits is not mutated.
func MergeReaction(traits core.Traits, reaction agent.CharacterOutput) core.Traits {
	next := traits.Clone()

	emotions := map[string]any{}
	switch existing := next[core.TraitEmotions].(type) {
	case map[string]any:
		maps.Copy(emotions, existing)
	case map[string]float64:
		for k, v := range existing {
			emotions[k] = v
		}
	}
	for k, v := range reaction.Emotions {
		emotions[k] = v
	}
	next[core.TraitEmotions] = emotions

	if reaction.Motivation != "" {
		next[core.TraitMotivation] = reaction.Motivation
	}
	return next
}
