package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user",
	RunE:  runUserAdd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().Int64("id", 0, "User ID (assigned when omitted)")
	userAddCmd.Flags().String("username", "", "Username (required)")
	userAddCmd.Flags().String("email", "", "Contact email")
	_ = userAddCmd.MarkFlagRequired("username")
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	id, _ := cmd.Flags().GetInt64("id")
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")

	u := &model.User{ID: id, Username: username, ContactEmail: email}
	if err := e.store.CreateUser(cmd.Context(), u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %q created with ID %d (limit $%.2f)\n", u.Username, u.ID, e.limits.Default())
	return nil
}
