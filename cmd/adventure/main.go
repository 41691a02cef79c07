package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "adventure",
		Short: "Text adventure narrated by an LLM with a tracked world state",
		// Bare invocation plays.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(playCmd(&configPath))
	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(validateCmd())
	return root
}
