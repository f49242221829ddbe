package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"projectbeheer/backend/internal/app"
	"projectbeheer/backend/internal/config"
	userdomain "projectbeheer/backend/internal/user/domain"
)

// mintToken signs an access token for userID with the configured key. The
// server resolves the effective role from the stored user record.
func mintToken(userID, role, supplierID string) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	tokens, err := app.Tokens(cfg)
	if err != nil {
		return "", err
	}
	tok, _, err := tokens.IssueAccess(userID, role, supplierID)
	if err != nil {
		return "", errors.Wrap(err, "mint token (JWT_PRIVATE_KEY required)")
	}
	return tok, nil
}

func newTokenCmd() *cobra.Command {
	var role, supplierID string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := mintToken(args[0], role, supplierID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "issued at %s\n", time.Now().UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(userdomain.RoleProjectLead), "Role claim")
	cmd.Flags().StringVar(&supplierID, "supplier", "", "Supplier claim for supplier users")
	return cmd
}
