package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatdir/internal/app"
	"github.com/vovakirdan/chatdir/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}

			st, err := app.OpenStore(cmd.Context(), &opts.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			token, err := auth.NewService(st, app.JWTConfig(&opts.cfg)).IssueToken(cmd.Context(), userID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
