package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ponder",
	Short: "Recursive reasoning assistant",
	Long: `Ponder answers questions by deliberating before it writes: it diverges
into competing strategies, critiques them, and synthesizes a response
blueprint. Hard questions are recursively decomposed into a tree of
sub-problems, solved in parallel, and combined bottom-up.

Core capabilities:
- Multi-strategy deliberation with critique and synthesis
- Recursive decomposition with a bounded depth budget
- Per-domain personas with customizable prompt templates
- Token usage ledger across sessions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}
