package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/service"
)

func characterCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Manage the cast of a story",
	}
	cmd.AddCommand(characterAddCmd(configPath))
	cmd.AddCommand(characterListCmd(configPath))
	cmd.AddCommand(characterHistoryCmd(configPath))
	return cmd
}

func characterAddCmd(configPath *string) *cobra.Command {
	var in service.CreateCharacterInput
	var traits []string
	cmd := &cobra.Command{
		Use:   "add <story-id>",
		Short: "Add a character to a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := parseKeyValues(traits)
			if err != nil {
				return err
			}
			in.StoryID = args[0]
			in.Traits = core.Traits(kv)

			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			c, err := sm.Services().Characters.Create(ctx, in)
			if err != nil {
				return err
			}
			cmd.Println(c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Character name (required)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Character description")
	cmd.Flags().Float64Var(&in.Importance, "importance", core.DefaultImportance, "Importance of the character")
	cmd.Flags().StringArrayVar(&traits, "trait", nil, "Trait as key=value (repeatable)")
	return cmd
}

func characterListCmd(configPath *string) *cobra.Command {
	var minImportance float64
	cmd := &cobra.Command{
		Use:   "list <story-id>",
		Short: "List the characters of a story, most important first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			cast, err := sm.Services().Characters.ListByImportance(ctx, args[0], minImportance)
			if err != nil {
				return err
			}
			if len(cast) == 0 {
				cmd.Println("No characters found.")
				return nil
			}
			for _, c := range cast {
				cmd.Printf("%s  %s (importance %.1f)\n", c.ID, c.Name, c.Importance)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&minImportance, "min-importance", 0, "Hide characters below this importance")
	return cmd
}

func characterHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <character-id>",
		Short: "Show recent trait changes of a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sm, err := openMesh(ctx, *configPath)
			if err != nil {
				return err
			}
			defer sm.Close(ctx)

			changes, err := sm.Services().Characters.History(ctx, args[0], limit)
			if err != nil {
				return err
			}
			for _, ch := range changes {
				cmd.Printf("%s  %s\n", ch.CreatedAt.Format("2006-01-02 15:04:05"), ch.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries; 0 shows all")
	return cmd
}
