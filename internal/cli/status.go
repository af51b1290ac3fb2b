package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(levelsCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coins, level, streak and badges",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	snap := d.Engine.Snapshot()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, snap)
	}

	earned := 0
	for _, b := range snap.Badges {
		if b.Earned {
			earned++
		}
	}

	fmt.Fprintf(out, "Coins:        %d\n", snap.Coins)
	fmt.Fprintf(out, "Level:        %d (%s)\n", snap.Level, snap.LevelInfo.Title)
	fmt.Fprintf(out, "XP:           %d (%.0f%%, %d to next)\n",
		snap.XP, snap.LevelInfo.ProgressPct(snap.XP), d.Engine.XPToNextLevel())
	fmt.Fprintf(out, "Streak:       %d days (longest %d)\n", snap.Streak.Current, snap.Streak.Longest)
	if snap.Streak.CanRevive {
		fmt.Fprintf(out, "              lost %d days; revive for %d coins\n", snap.Streak.Lost, d.Engine.RevivalCost())
	}
	fmt.Fprintf(out, "Freeze:       %d passes\n", snap.Streak.FreezePasses)
	fmt.Fprintf(out, "Badges:       %d/%d\n", earned, len(snap.Badges))
	if d.Engine.DoublePointsActive() {
		fmt.Fprintf(out, "Double XP:    until %s\n", snap.DoublePointsUntil.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Show the level table",
	Args:  cobra.NoArgs,
	RunE:  runLevels,
}

func runLevels(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	levels := d.Catalog.Levels()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), levels)
	}

	current, _ := d.Engine.Level()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tTITLE\tMIN XP\tMAX XP\t")
	for _, l := range levels {
		marker := ""
		if l.Level == current.Level {
			marker = "<- you"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", l.Level, l.Title, l.MinXP, l.MaxXP, marker)
	}
	return w.Flush()
}
