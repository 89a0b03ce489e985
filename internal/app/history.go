package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/macaw-rl/macawlab/internal/history"
)

// showHistory prints the most recent runs recorded under the suite's log
// root.
func (a *App) showHistory(ctx context.Context) error {
	store, err := history.Open(a.suite.Defaults.LogRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, a.config.HistoryLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.outW, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tEXPERIMENT\tSTATUS\tEXIT\tMETRICS\tDURATION\tID")
	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.StartedAt.Format(time.RFC3339), run.Experiment, run.Status,
			run.ExitCode, run.MetricLines, duration, run.ID)
	}
	return tw.Flush()
}
