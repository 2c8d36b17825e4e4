package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, logger, err := openApp(ctx, flagReport)
		if err != nil {
			return err
		}
		defer application.Close()

		err = application.Watch(ctx, runRequest(cmd))
		logger.Info("watch stopped")
		return err
	},
}

func init() {
	addRunFlags(watchCmd)
}
