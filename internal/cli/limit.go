package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Manage per-user credit limits",
}

var limitSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a user's credit limit override",
	Long: `Set a per-user limit. If the new limit leaves the user with credits,
their exhausted workspaces are reactivated.`,
	RunE: runLimitSet,
}

var limitShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a user's limit and remaining credits",
	RunE:  runLimitShow,
}

func init() {
	rootCmd.AddCommand(limitCmd)
	limitCmd.AddCommand(limitSetCmd, limitShowCmd)

	limitSetCmd.Flags().Int64("user", 0, "User ID (required)")
	limitSetCmd.Flags().Float64("limit", 0, "Limit in USD (required)")
	_ = limitSetCmd.MarkFlagRequired("user")
	_ = limitSetCmd.MarkFlagRequired("limit")

	limitShowCmd.Flags().Int64("user", 0, "User ID (required)")
	_ = limitShowCmd.MarkFlagRequired("user")
}

func runLimitSet(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	limit, _ := cmd.Flags().GetFloat64("limit")

	res, err := e.limitManager().SetLimitOverride(cmd.Context(), userID, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !res.Applied {
		fmt.Fprintf(out, "User %d already has the default limit of $%.2f\n", userID, e.limits.Default())
		return nil
	}
	fmt.Fprintf(out, "Limit for user %d set to $%.2f\n", userID, limit)
	if res.Previous != nil {
		fmt.Fprintf(out, "  Previous override: $%.2f\n", *res.Previous)
	}
	for _, ws := range res.Reactivated {
		fmt.Fprintf(out, "  Reactivated workspace %s (%s)\n", ws.Namespace, ws.GoogleProject)
	}
	return nil
}

func runLimitShow(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	sum, err := e.limitManager().Summary(cmd.Context(), userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:      %d\n", sum.UserID)
	fmt.Fprintf(out, "Limit:     $%.2f", sum.LimitUSD)
	if sum.Overridden {
		fmt.Fprint(out, " (override)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Recorded:  $%.2f\n", sum.RecordedCost)
	fmt.Fprintf(out, "Remaining: $%.2f\n", sum.RemainingUSD)
	return nil
}
