package main

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/storymesh"
	"github.com/hupe1980/storymesh/service"
)

func playCmd(configPath *string) *cobra.Command {
	var in service.CreateStoryInput
	cmd := &cobra.Command{
		Use:   "play [story-id]",
		Short: "Play a story interactively",
		Long: "Play an existing story, or create a new one from --genre and --theme. " +
			"Type a number to pick a suggestion, any other text to act freely, or 'quit' to stop.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			storyID := ""
			if len(args) == 1 {
				storyID = args[0]
			} else {
				story, intro, err := sm.CreateStoryWithIntroduction(ctx, in)
				if err != nil {
					return err
				}
				storyID = story.ID
				cmd.Printf("Story %s\n\n%s\n", storyID, intro)
			}
			return runPlay(ctx, cmd, sm, storyID, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Story title for a new story")
	cmd.Flags().StringVar(&in.Genre, "genre", "fantasy", "Genre for a new story")
	cmd.Flags().StringVar(&in.Theme, "theme", "discovery", "Theme for a new story")
	cmd.Flags().StringVar(&in.Setting, "setting", "", "Setting for a new story")
	return cmd
}

func runPlay(ctx context.Context, cmd *cobra.Command, sm *storymesh.StoryMesh, storyID string, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		suggestions, err := sm.Suggestions(ctx, storyID)
		if err != nil {
			return err
		}
		cmd.Println()
		printSuggestions(cmd, suggestions)
		cmd.Print("> ")

		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "quit"), strings.EqualFold(input, "exit"):
			return nil
		}
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(suggestions) {
			input = suggestions[n-1]
		}

		text, err := sm.Continue(ctx, storyID, input)
		cmd.Printf("\n%s\n", text)
		if err != nil {
			cmd.PrintErrf("warning: %v\n", err)
		}
	}
}
