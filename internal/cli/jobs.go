package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coverquest/coverquest/internal/daemon"
)

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate today's challenges for all users",
	Long:  `Run the daily challenge generation batch once, outside the scheduler.`,
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	generated, skipped, err := d.Generator.GenerateAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d challenges (%d users skipped)\n", generated, skipped)
	return nil
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute protection scores for all users",
	RunE:  runRecompute,
}

func runRecompute(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.Engagement.RecomputeAll()
	if err != nil {
		return err
	}
	fmt.Printf("Recomputed scores for %d users\n", n)
	return nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Refresh behavioral insights for users due for analysis",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.Learner.AnalyzeAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Analyzed %d users\n", n)
	return nil
}
