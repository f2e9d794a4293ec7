package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	root := &cobra.Command{
		Use:          "storymesh",
		Short:        "Multi-agent interactive fiction engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.SetOut(os.Stdout)
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(storyCmd(&configPath))
	root.AddCommand(characterCmd(&configPath))
	root.AddCommand(playCmd(&configPath))
	root.AddCommand(configCmd(&configPath))
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
