package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ascend-hq/ascend/internal/daemon"
	"github.com/ascend-hq/ascend/internal/domain"
)

func init() {
	coinsCmd.AddCommand(coinsAddCmd, coinsSpendCmd)
	xpCmd.AddCommand(xpAddCmd)
	nudgeCmd.AddCommand(nudgeCompleteCmd)
	badgeCmd.AddCommand(badgeListCmd, badgeEarnCmd)
	premiumCmd.AddCommand(premiumListCmd, premiumUnlockCmd)
	rootCmd.AddCommand(coinsCmd, xpCmd, nudgeCmd, badgeCmd, premiumCmd)
}

// parseAmount parses a positive integer argument.
func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return n, nil
}

// reportOutcome prints the result of an operation that can be refused.
// Denied and unknown outcomes are returned as errors so the exit status
// reflects them.
func reportOutcome(cmd *cobra.Command, d *daemon.Daemon, o domain.Outcome, what string, unknown error) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, map[string]any{
			"outcome": o,
			"ok":      o.OK(),
			"state":   d.Engine.Snapshot(),
		}); err != nil {
			return err
		}
	}
	switch o {
	case domain.OutcomeApplied:
		if !jsonOutput {
			fmt.Fprintf(out, "%s: done (coins %d)\n", what, d.Engine.Coins())
		}
	case domain.OutcomeAlreadySatisfied:
		if !jsonOutput {
			fmt.Fprintf(out, "%s: already done\n", what)
		}
	case domain.OutcomeDenied:
		return fmt.Errorf("%s: denied (coins %d)", what, d.Engine.Coins())
	case domain.OutcomeUnknown:
		return fmt.Errorf("%s: %w", what, unknown)
	}
	return nil
}

// ─── coins ──────────────────────────────────────────────────────────────────

var coinsCmd = &cobra.Command{
	Use:   "coins",
	Short: "Add or spend coins",
}

var coinsAddCmd = &cobra.Command{
	Use:   "add N",
	Short: "Add N coins to the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		d.Engine.AddCoins(n)
		return reportOutcome(cmd, d, domain.OutcomeApplied, fmt.Sprintf("add %d coins", n), nil)
	},
}

var coinsSpendCmd = &cobra.Command{
	Use:   "spend N",
	Short: "Spend N coins if the wallet can cover them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		return reportOutcome(cmd, d, d.Engine.SpendCoins(n), fmt.Sprintf("spend %d coins", n), nil)
	},
}

// ─── xp / nudges ────────────────────────────────────────────────────────────

var xpCmd = &cobra.Command{
	Use:   "xp",
	Short: "Grant experience points",
}

var xpAddCmd = &cobra.Command{
	Use:   "add N",
	Short: "Add N XP, leveling up when a threshold is crossed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		level, up := d.Engine.AddXP(n)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"level": level, "leveled_up": up})
		}
		info, xp := d.Engine.Level()
		fmt.Fprintf(cmd.OutOrStdout(), "+%d XP (total %d), level %d %s\n", n, xp, level, info.Title)
		if up {
			fmt.Fprintf(cmd.OutOrStdout(), "Level up! +%d coins\n", int64(level)*50)
		}
		return nil
	},
}

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Record leadership nudges",
}

var nudgeCompleteCmd = &cobra.Command{
	Use:   "complete [POINTS]",
	Short: "Complete a nudge: grant XP and extend the streak",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		points := int64(20)
		if len(args) == 1 {
			var err error
			if points, err = parseAmount(args[0]); err != nil {
				return err
			}
		}
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		res := d.Engine.CompleteNudge(points)
		done, err := d.Challenges.RecordProgress(cmd.Context(), domain.ChallengeNudges, 1)
		if err != nil {
			return err
		}
		if res.Streak == domain.OutcomeApplied {
			more, err := d.Challenges.RecordProgress(cmd.Context(), domain.ChallengeStreak, 1)
			if err != nil {
				return err
			}
			done = append(done, more...)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]any{"result": res, "completed": done})
		}
		fmt.Fprintf(out, "+%d XP", res.XPAwarded)
		if res.Doubled {
			fmt.Fprint(out, " (double points)")
		}
		fmt.Fprintf(out, ", streak %s, level %d\n", res.Streak, res.Level)
		for _, c := range done {
			fmt.Fprintf(out, "Challenge complete: %s\n", c.Description)
		}
		return nil
	},
}

// ─── badges ─────────────────────────────────────────────────────────────────

var badgeCmd = &cobra.Command{
	Use:     "badge",
	Aliases: []string{"badges"},
	Short:   "List or earn badges",
}

var badgeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all badges",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		badges := d.Engine.Badges()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), badges)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTIER\tEARNED")
		for _, b := range badges {
			earned := "-"
			if b.Earned {
				earned = b.EarnedDate.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Tier, earned)
		}
		return w.Flush()
	},
}

var badgeEarnCmd = &cobra.Command{
	Use:   "earn ID",
	Short: "Mark a badge as earned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		return reportOutcome(cmd, d, d.Engine.EarnBadge(args[0]), "earn "+args[0], domain.ErrUnknownBadge)
	},
}

// ─── premium ────────────────────────────────────────────────────────────────

var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "List or unlock premium nudges",
}

var premiumListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List premium nudges and their prices",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		items := d.Engine.Snapshot().PremiumNudges
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), items)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCOST\tUNLOCKED")
		for _, p := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", p.ID, p.Title, p.Cost, p.Unlocked)
		}
		return w.Flush()
	},
}

var premiumUnlockCmd = &cobra.Command{
	Use:   "unlock ID",
	Short: "Unlock a premium nudge with coins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		return reportOutcome(cmd, d, d.Engine.UnlockPremiumNudge(args[0]), "unlock "+args[0], domain.ErrUnknownPremium)
	},
}
