package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each user's standing against their credit limit",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("exhausted", false, "Only show users at or over their limit")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	onlyExhausted, _ := cmd.Flags().GetBool("exhausted")
	ctx := cmd.Context()

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No users registered. Use 'guardian user add' to create one.")
		return nil
	}
	costs, err := e.store.AllRecordedCosts(ctx)
	if err != nil {
		return fmt.Errorf("load recorded costs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tUSERNAME\tLIMIT\tRECORDED\tREMAINING\tUSED\tOVERRIDE\n")
	for _, u := range users {
		limit, err := e.limits.Limit(u)
		if err != nil {
			fmt.Fprintf(w, "%d\t%s\t(%v)\t\t\t\t\n", u.ID, u.Username, err)
			continue
		}
		recorded := costs[u.ID]
		if onlyExhausted && credits.CompareCosts(recorded, limit) < 0 {
			continue
		}
		override := "-"
		if u.HasLimitOverride() {
			override = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t$%.2f\t$%.2f\t$%.2f\t%.1f%%\t%s\n",
			u.ID, u.Username, limit, recorded,
			credits.RemainingCredits(limit, recorded),
			recorded/limit*100, override)
	}
	return w.Flush()
}
