package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ascend-hq/ascend/internal/domain"
)

func init() {
	boxOpenCmd.Flags().StringVar(&boxTrigger, "trigger", string(domain.TriggerMilestone),
		"Why the box opens: streak, challenge, milestone or daily")
	boxCmd.AddCommand(boxOpenCmd)
	dailyCmd.AddCommand(dailyShowCmd, dailyClaimCmd)
	rootCmd.AddCommand(boxCmd, dailyCmd)
}

var boxTrigger string

// ─── reward boxes ───────────────────────────────────────────────────────────

var boxCmd = &cobra.Command{
	Use:   "box",
	Short: "Open reward boxes",
}

var boxOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a reward box and apply its reward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, err := domain.ParseTrigger(boxTrigger)
		if err != nil {
			return err
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		ev, err := d.Boxes.Open(cmd.Context(), trigger)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ev)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s box: %s (%s)\n", ev.Rarity, ev.Def.Name, ev.Detail)
		if !ev.Outcome.OK() {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing granted: %s\n", ev.Outcome)
		}
		return nil
	},
}

// ─── daily rewards ──────────────────────────────────────────────────────────

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show or claim the daily reward",
}

var dailyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the 30-day reward calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		st, err := d.Daily.Status()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DAY\tREWARD\tSTATUS")
		for _, r := range st.Rewards {
			status := ""
			switch {
			case r.Claimed:
				status = "claimed"
			case r.Day == st.CurrentDay && st.Claimable:
				status = "claim today"
			case r.Day == st.CurrentDay:
				status = "tomorrow"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.Day, r.Description, status)
		}
		return w.Flush()
	},
}

var dailyClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim today's reward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		claim, err := d.Daily.Claim(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), claim)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Day %d: +%d coins\n", claim.Reward.Day, claim.Reward.Coins)
		if claim.Box != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Bonus %s box: %s (%s)\n", claim.Box.Rarity, claim.Box.Def.Name, claim.Box.Detail)
		}
		return nil
	},
}
