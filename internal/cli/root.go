// Package cli implements the CoverQuest command-line interface using Cobra.
// The serve command runs the engine; the rest are operator shortcuts for the
// batch jobs and user administration.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coverquest",
	Short: "CoverQuest — insurance engagement and scoring engine",
	Long: `CoverQuest is the engagement engine behind the insurance app:
daily challenges, streaks, protection scores, and reward points.

Run 'coverquest serve' to start the API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
