package cli

import (
	"github.com/spf13/cobra"

	"github.com/ascend-hq/ascend/internal/domain"
)

func init() {
	streakCmd.AddCommand(streakCompleteCmd, streakReviveCmd)
	rootCmd.AddCommand(streakCmd)
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Extend or revive the daily streak",
}

var streakCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark today as completed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		o := d.Engine.IncrementStreak()
		if o == domain.OutcomeApplied {
			if _, err := d.Challenges.RecordProgress(cmd.Context(), domain.ChallengeStreak, 1); err != nil {
				return err
			}
		}
		return reportOutcome(cmd, d, o, "streak complete", nil)
	},
}

var streakReviveCmd = &cobra.Command{
	Use:   "revive",
	Short: "Buy back a broken streak with coins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		return reportOutcome(cmd, d, d.Engine.ReviveStreak(), "streak revive", nil)
	},
}
