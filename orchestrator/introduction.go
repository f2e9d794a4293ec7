package orchestrator

import (
	"context"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/internal/util"
	"github.com/hupe1980/storymesh/metrics"
)

// GenerateIntroduction writes the opening scene of the story. The text is
// stored as the first section when the story has none yet. A failing provider
// yields the introduction fallback, which is not stored.
func (o *Orchestrator) GenerateIntroduction(ctx context.Context) (text string, err error) {
	ctx = metrics.WithStory(ctx, o.storyID)
	done := metrics.Start(ctx, o.recorder, OpIntroduction)
	defer func() { done(err == nil) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureReady(ctx); err != nil {
		return "", err
	}
	story := o.story

	res := runStage(ctx, o, OpIntroduction, func(ctx context.Context) (string, error) {
		system, err := util.Execute(introductionSystem, story)
		if err != nil {
			return "", err
		}
		user, err := util.Execute(introductionUser, story)
		if err != nil {
			return "", err
		}
		return o.complete(ctx, OpIntroduction, system, user)
	}, func(error) string {
		return fallback.Introduction(story.Genre, story.Theme, story.Setting)
	})
	if res.Degraded {
		return res.Value, nil
	}

	var section *core.StorySection
	err = o.store.InTx(ctx, func(repo core.Repository) error {
		maxOrder, err := repo.MaxSectionOrder(ctx, o.storyID)
		if err != nil || maxOrder > 0 {
			return err
		}
		section, err = appendSection(ctx, repo, o.storyID, res.Value, o.opts.Now())
		return err
	})
	if err != nil {
		o.logger.Error("Could not persist introduction", "error", err)
		return res.Value, core.NewStorageError("persist introduction", err)
	}
	if section != nil {
		o.sections = append(o.sections, section)
	}
	return res.Value, nil
}
