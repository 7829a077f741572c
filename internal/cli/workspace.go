package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage credit-funded workspaces",
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a workspace",
	RunE:  runWorkspaceAdd,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's workspaces",
	RunE:  runWorkspaceList,
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceAddCmd, workspaceListCmd)

	workspaceAddCmd.Flags().Int64("user", 0, "Creator user ID (required)")
	workspaceAddCmd.Flags().String("namespace", "", "Workspace namespace (required)")
	workspaceAddCmd.Flags().String("project", "", "Google project")
	workspaceAddCmd.Flags().String("billing-account", "", "Billing account")
	_ = workspaceAddCmd.MarkFlagRequired("user")
	_ = workspaceAddCmd.MarkFlagRequired("namespace")

	workspaceListCmd.Flags().Int64("user", 0, "Creator user ID (required)")
	_ = workspaceListCmd.MarkFlagRequired("user")
}

func runWorkspaceAdd(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	namespace, _ := cmd.Flags().GetString("namespace")
	project, _ := cmd.Flags().GetString("project")
	billing, _ := cmd.Flags().GetString("billing-account")

	ctx := cmd.Context()
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}

	ws := &model.Workspace{
		Namespace:      namespace,
		GoogleProject:  project,
		BillingAccount: billing,
		CreatorID:      userID,
		Active:         true,
		BillingStatus:  model.BillingActive,
	}
	if err := e.store.CreateWorkspace(ctx, ws); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Workspace %q created with ID %d\n", ws.Namespace, ws.ID)
	return nil
}

func runWorkspaceList(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	workspaces, err := e.store.ListWorkspacesByCreator(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAMESPACE\tPROJECT\tBILLING ACCOUNT\tACTIVE\tSTATUS\tEXHAUSTED\n")
	for _, ws := range workspaces {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\t%t\n",
			ws.ID, ws.Namespace, ws.GoogleProject, ws.BillingAccount,
			ws.Active, ws.BillingStatus, ws.InitialCreditsExhausted)
	}
	return w.Flush()
}
