package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "propsignal",
	Short: "Property market signal detection and investor matching",
	Long: `PropSignal CLI

Detects market signals from official transactions and portal listings,
matches them against investor mandates and records notifications.

Usage:
  go run ./cmd/propsignal [command]

Examples:
  go run ./cmd/propsignal serve
  go run ./cmd/propsignal pipeline --org org-1
  go run ./cmd/propsignal pipeline --all`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
