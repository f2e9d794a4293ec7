package main

import (
	"context"

	"github.com/hupe1980/storymesh"
	"github.com/hupe1980/storymesh/config"
)

func openMesh(ctx context.Context, configPath string) (*storymesh.StoryMesh, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return storymesh.FromConfig(ctx, cfg)
}
