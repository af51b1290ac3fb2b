package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ascend-hq/ascend/internal/app/challenge"
)

func init() {
	challengesCmd.AddCommand(challengesListCmd, challengesProgressCmd)
	rootCmd.AddCommand(challengesCmd)
}

var challengesCmd = &cobra.Command{
	Use:     "challenges",
	Aliases: []string{"challenge"},
	Short:   "Weekly leadership challenges",
}

var challengesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List this week's challenges",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		week, err := d.Challenges.Weekly()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), week)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tCHALLENGE\tPROGRESS\tREWARD\tEXPIRES")
		for _, c := range week {
			progress := fmt.Sprintf("%d/%d", c.Progress, c.Target)
			if c.Completed {
				progress += " done"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d XP + %d coins\t%s\n",
				c.Type, c.Description, progress, c.RewardXP, c.RewardCoins,
				c.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var challengesProgressCmd = &cobra.Command{
	Use:   "progress TYPE [N]",
	Short: "Record N units of progress (default 1) on challenges of TYPE",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := challenge.ParseType(args[0])
		if err != nil {
			return err
		}
		delta := 1
		if len(args) == 2 {
			if delta, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid progress %q", args[1])
			}
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		done, err := d.Challenges.RecordProgress(cmd.Context(), t, delta)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), done)
		}
		if len(done) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d %s\n", delta, t)
		}
		for _, c := range done {
			fmt.Fprintf(cmd.OutOrStdout(), "Challenge complete: %s (+%d XP, +%d coins)\n",
				c.Description, c.RewardXP, c.RewardCoins)
		}
		return nil
	},
}
