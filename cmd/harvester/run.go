package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one crawl session and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer d.close(a.log)

			sum, err := d.worker.Run(ctx)
			if err != nil {
				return err
			}
			if sum.Skipped {
				cmd.Println("Another session is running; nothing done.")
				return nil
			}
			cmd.Printf("Session %s: %d found, %d new, %d updated, %d page(s), stop=%s, %s\n",
				sum.SessionID, sum.Found, sum.New, sum.Updated, sum.Pages, sum.Stop, sum.Duration.Round(time.Millisecond))
			if sum.Delivery.Candidates > 0 {
				cmd.Printf("Delivery: %d sent, %d filtered, %d exported, %d failed\n",
					sum.Delivery.Sent, sum.Delivery.Filtered, sum.Delivery.Exported,
					sum.Delivery.SendFailed+sum.Delivery.ExportFailed)
			}
			return nil
		},
	}
}
