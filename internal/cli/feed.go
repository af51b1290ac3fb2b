package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ascend-hq/ascend/internal/domain"
)

func init() {
	notificationsCmd.Flags().BoolVar(&notifPending, "pending", false, "Show only unseen notifications and mark them shown")
	notificationsCmd.Flags().IntVar(&notifLimit, "limit", 20, "Maximum notifications to show")
	ledgerCmd.Flags().IntVar(&ledgerLimit, "limit", 50, "Maximum entries to show")
	rootCmd.AddCommand(notificationsCmd, ledgerCmd)
}

var (
	notifPending bool
	notifLimit   int
	ledgerLimit  int
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "Show recent notifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		var notes []domain.Notification
		if notifPending {
			notes, err = d.Feed.Pending(notifLimit)
		} else {
			notes, err = d.Feed.Recent(notifLimit)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			err = printJSON(cmd.OutOrStdout(), notes)
		} else {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tTITLE\tMESSAGE")
			for _, n := range notes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					n.CreatedAt.Local().Format("01-02 15:04"), n.Type, n.Title, n.Body)
			}
			err = w.Flush()
		}
		if err != nil || !notifPending {
			return err
		}
		for _, n := range notes {
			if err := d.Feed.MarkShown(n.ID); err != nil {
				return err
			}
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the coin ledger and its balance audit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		entries, err := d.Ledger.History(ledgerLimit)
		if err != nil {
			return err
		}
		audit, err := d.Ledger.Audit()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"entries": entries, "audit": audit})
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tAMOUNT\tBALANCE\tREASON")
		for _, e := range entries {
			amount := e.Amount
			if e.EntryType == domain.EntryDebit {
				amount = -amount
			}
			fmt.Fprintf(w, "%s\t%s\t%+d\t%d\t%s\n",
				e.Timestamp.Local().Format("01-02 15:04"), e.Type, amount, e.Balance, e.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nDebits %d, credits %d, balanced %t\n", audit.Debits, audit.Credits, audit.Balanced)
		return nil
	},
}
