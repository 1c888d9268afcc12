package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coverquest/coverquest/internal/daemon"
	"github.com/coverquest/coverquest/internal/domain"
)

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(resetUserCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's engagement summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	userID := args[0]
	u, err := d.DB.GetUser(userID)
	if err != nil {
		return err
	}
	balance, err := d.Points.Balance(userID)
	if err != nil {
		return err
	}
	active, err := d.DB.ListUserChallenges(userID, domain.ChallengeActive)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "User\t%s\n", u.ID)
	fmt.Fprintf(w, "Protection score\t%.1f\n", u.OverallScore)
	fmt.Fprintf(w, "Protection points\t%d (%s)\n", balance, domain.TierForPoints(balance))
	fmt.Fprintf(w, "Streak\t%d (longest %d)\n", u.CurrentStreak, u.LongestStreak)
	fmt.Fprintf(w, "Streak freeze\t%v\n", u.HasStreakFreeze)
	fmt.Fprintf(w, "Active challenges\t%d\n", len(active))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(u.CategoryScores) > 0 {
		fmt.Println("\nCategory scores:")
		cw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, cat := range domain.AllCategories() {
			if score, ok := u.CategoryScores[cat]; ok {
				fmt.Fprintf(cw, "  %s\t%.1f\n", cat, score)
			}
		}
		if err := cw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

var resetUserCmd = &cobra.Command{
	Use:   "reset-user <user-id>",
	Short: "Reset a user's streak, daily counters, and point balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetUser,
}

func runResetUser(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	userID := args[0]
	if err := d.Engagement.AdminResetUser(userID); err != nil {
		return err
	}
	if err := d.Points.AdminReset(userID, "admin reset"); err != nil {
		return err
	}
	fmt.Printf("Reset user %s\n", userID)
	return nil
}
