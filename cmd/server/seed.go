package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatdir/internal/app"
	"github.com/vovakirdan/chatdir/internal/seed"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and chats from a YAML fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), &opts.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := seed.Apply(cmd.Context(), st, fixture)
			if err != nil {
				return err
			}

			for name, id := range res.Users {
				opts.logger.Info().Str("username", name).Str("user_id", id).Msg("user seeded")
			}
			opts.logger.Info().Int("users", len(res.Users)).Int("chats", len(res.Chats)).Msg("seed complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "seed.yaml", "fixture file")

	return cmd
}
