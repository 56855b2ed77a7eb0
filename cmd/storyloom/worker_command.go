package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyloom/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background task worker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			w, err := worker.New(svc.cfg, svc.queue, svc.pipeline, svc.log)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(runCtx); err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Worker running; press Ctrl-C to stop")

			<-runCtx.Done()
			w.Stop()
			return nil
		},
	}
}
