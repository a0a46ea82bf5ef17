package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelscribe/internal/daemon"
	"reelscribe/internal/logging"
)

func newServeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			d, err := daemon.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close(context.Background())
			return d.Run(ctx)
		},
	}
}
