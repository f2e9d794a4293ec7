package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/storymesh/service"
)

func storyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Create, inspect and continue stories",
	}
	cmd.AddCommand(storyCreateCmd(configPath))
	cmd.AddCommand(storyListCmd(configPath))
	cmd.AddCommand(storyShowCmd(configPath))
	cmd.AddCommand(storyContinueCmd(configPath))
	cmd.AddCommand(storySuggestCmd(configPath))
	return cmd
}

func storyCreateCmd(configPath *string) *cobra.Command {
	var in service.CreateStoryInput
	var intro bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoryCreate(cmd, *configPath, in, intro)
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Story title")
	cmd.Flags().StringVar(&in.Genre, "genre", "", "Story genre (required)")
	cmd.Flags().StringVar(&in.Theme, "theme", "", "Story theme (required)")
	cmd.Flags().StringVar(&in.Setting, "setting", "", "Story setting")
	cmd.Flags().BoolVar(&intro, "intro", true, "Generate the opening scene")
	return cmd
}

func runStoryCreate(cmd *cobra.Command, configPath string, in service.CreateStoryInput, intro bool) error {
	ctx := context.Background()
	sm, err := openMesh(ctx, configPath)
	if err != nil {
		return err
	}
	defer sm.Close(ctx)

	if !intro {
		story, err := sm.Services().Stories.Create(ctx, in)
		if err != nil {
			return err
		}
		cmd.Println(story.ID)
		return nil
	}

	story, text, err := sm.CreateStoryWithIntroduction(ctx, in)
	if err != nil {
		return err
	}
	cmd.Println(story.ID)
	cmd.Println()
	cmd.Println(text)
	return nil
}

func storyListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			stories, err := sm.Services().Stories.List(ctx)
			if err != nil {
				return err
			}
			if len(stories) == 0 {
				cmd.Println("No stories found.")
				return nil
			}
			for _, s := range stories {
				cmd.Printf("%s  %s (%s, %s)\n", s.ID, displayTitle(s.Title), s.Genre, s.Theme)
			}
			return nil
		},
	}
}

func storyShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <story-id>",
		Short: "Print a story with all of its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			detail, err := sm.Services().Stories.Get(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s\nGenre: %s\nTheme: %s\n", displayTitle(detail.Title), detail.Genre, detail.Theme)
			if detail.Setting != "" {
				cmd.Printf("Setting: %s\n", detail.Setting)
			}
			for _, s := range detail.Sections {
				cmd.Printf("\n[%d]\n%s\n", s.Order, s.Content)
			}
			return nil
		},
	}
}

func storyContinueCmd(configPath *string) *cobra.Command {
	var characters []string
	cmd := &cobra.Command{
		Use:   "continue <story-id> <input>",
		Short: "Generate the next section from the reader's choice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			text, err := sm.Continue(ctx, args[0], strings.Join(args[1:], " "), characters...)
			if text != "" {
				cmd.Println(text)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&characters, "character", nil, "Active character id (repeatable)")
	return cmd
}

func storySuggestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <story-id>",
		Short: "Suggest three next actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			suggestions, err := sm.Suggestions(ctx, args[0])
			if err != nil {
				return err
			}
			printSuggestions(cmd, suggestions)
			return nil
		},
	}
}

func printSuggestions(cmd *cobra.Command, suggestions []string) {
	for i, s := range suggestions {
		cmd.Printf("%d. %s\n", i+1, s)
	}
}

func displayTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

func parseKeyValues(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
