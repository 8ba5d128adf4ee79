package main

import (
	"context"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatsCommand(a *app) *cobra.Command {
	var sessions int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics and recent sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := openStore(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Statistics(ctx)
			if err != nil {
				return err
			}
			last, err := st.LastSessionAt(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Metric", "Value"})
			t.AppendRow(table.Row{"Total listings", stats.Total})
			t.AppendRow(table.Row{"New in last 24h", stats.NewInLast24h})
			t.AppendRow(table.Row{"Total sessions", stats.TotalSessions})
			lastStr := "never"
			if last != nil {
				lastStr = last.Local().Format(time.DateTime)
			}
			t.AppendRow(table.Row{"Last session", lastStr})
			t.Render()

			if sessions <= 0 {
				return nil
			}
			recent, err := st.RecentSessions(ctx, sessions)
			if err != nil {
				return err
			}
			s := table.NewWriter()
			s.SetOutputMirror(cmd.OutOrStdout())
			s.SetStyle(table.StyleLight)
			s.AppendHeader(table.Row{"Started", "Found", "New", "Pages", "Duration", "Stop"})
			for _, r := range recent {
				s.AppendRow(table.Row{
					r.Timestamp.Local().Format(time.DateTime),
					r.JobsFound, r.NewCount, r.Pages,
					r.Duration.Round(time.Millisecond), string(r.StopReason),
				})
			}
			s.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&sessions, "sessions", 5, "recent sessions to list (0 hides the table)")
	return cmd
}
