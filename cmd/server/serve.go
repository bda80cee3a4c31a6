package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatdir/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var overrides struct {
		addr   string
		driver string
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if overrides.addr != "" {
				cfg.Addr = overrides.addr
			}
			if overrides.driver != "" {
				cfg.Store.Driver = overrides.driver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if opts.logger.GetLevel() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &cfg, opts.logger)
			if err != nil {
				return err
			}

			opts.logger.Info().Str("addr", cfg.Addr).Msg("starting chatdir server")
			if err := application.Run(ctx); err != nil {
				return err
			}
			opts.logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.driver, "driver", "", "store driver (mongo, sqlite)")

	return cmd
}
