package cli

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Process a live cost export",
	Long: `Compare live costs from a YAML export with the last recorded costs,
send threshold alerts and exhaust users over their limit. Recorded costs are
updated after each batch so a rerun with the same file does nothing.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("costs", "", "Live cost YAML file (required)")
	checkCmd.Flags().Int("batch-size", 0, "Users per batch (overrides credits.batch_size)")
	checkCmd.Flags().Bool("dry-run", false, "Only list the users that would be processed")
	_ = checkCmd.MarkFlagRequired("costs")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	costsPath, _ := cmd.Flags().GetString("costs")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if batchSize <= 0 {
		batchSize = e.cfg.Credits.BatchSize
	}

	ctx := cmd.Context()
	live, err := credits.LoadCostFile(costsPath)
	if err != nil {
		return err
	}
	ids := slices.Sorted(maps.Keys(live))

	users, err := e.store.GetUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			users[id] = model.User{ID: id}
		}
	}
	accounts, err := e.limits.Accounts(users)
	if err != nil {
		return err
	}

	candidates := credits.AboveLowestThreshold(ids, live, accounts, e.thresholds)
	e.logger.Info("cost file loaded", "users", len(ids), "candidates", len(candidates))

	out := cmd.OutOrStdout()
	if dryRun {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "USER\tLIVE\tLIMIT\tUSED\n")
		for _, id := range candidates {
			acct := accounts[id]
			fmt.Fprintf(w, "%d\t$%.2f\t$%.2f\t%.0f%%\n", id, live[id], acct.Limit, live[id]/acct.Limit*100)
		}
		return w.Flush()
	}

	proc, err := e.processor(nil)
	if err != nil {
		return err
	}
	var total credits.BatchResult
	processed := make(map[int64]struct{}, len(candidates))

	for _, batch := range credits.Partition(candidates, batchSize) {
		recorded, err := e.store.RecordedCosts(ctx, batch)
		if err != nil {
			return fmt.Errorf("load recorded costs: %w", err)
		}
		batchLive := make(map[int64]float64, len(batch))
		for _, id := range batch {
			batchLive[id] = live[id]
		}

		res, err := proc.Process(ctx, credits.Batch{
			UserIDs:       batch,
			RecordedCosts: recorded,
			LiveCosts:     batchLive,
		})
		if err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
		if err := e.store.SaveRecordedCosts(ctx, batchLive); err != nil {
			return fmt.Errorf("save recorded costs: %w", err)
		}
		for _, id := range batch {
			processed[id] = struct{}{}
		}

		total.Users += res.Users
		total.Changed += res.Changed
		total.NewlyExhausted = append(total.NewlyExhausted, res.NewlyExhausted...)
		total.AlertsSent += res.AlertsSent
		total.AlertFailures += res.AlertFailures
		total.CostRegressions += res.CostRegressions
		total.Remediations = append(total.Remediations, res.Remediations...)
	}

	// Users below every threshold still get their cost recorded.
	rest := make(map[int64]float64, len(live)-len(processed))
	for id, cost := range live {
		if _, ok := processed[id]; !ok {
			rest[id] = cost
		}
	}
	if len(rest) > 0 {
		if err := e.store.SaveRecordedCosts(ctx, rest); err != nil {
			return fmt.Errorf("save recorded costs: %w", err)
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Users checked:\t%d\n", len(ids))
	fmt.Fprintf(w, "Users processed:\t%d\n", total.Users)
	fmt.Fprintf(w, "Changed costs:\t%d\n", total.Changed)
	fmt.Fprintf(w, "Alerts sent:\t%d\n", total.AlertsSent)
	fmt.Fprintf(w, "Alert failures:\t%d\n", total.AlertFailures)
	fmt.Fprintf(w, "Cost regressions:\t%d\n", total.CostRegressions)
	fmt.Fprintf(w, "Newly exhausted:\t%d\n", len(total.NewlyExhausted))
	fmt.Fprintf(w, "Remediation failures:\t%d\n", total.RemediationFailures())
	if err := w.Flush(); err != nil {
		return err
	}

	if len(total.Remediations) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "USER\tSTATE\tWORKSPACES\tTEARDOWN FAILURES\n")
		for _, r := range total.Remediations {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", r.UserID, r.State, len(r.Workspaces), len(r.TeardownFailures))
		}
		return w.Flush()
	}
	return nil
}
