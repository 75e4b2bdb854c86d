package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
	"github.com/Lappy000/Browser-Agent-AI/pkg/usage"
)

// printHistory lists the most recent runs recorded in the usage ledger with
// the totals of the last 30 days.
func printHistory(ctx context.Context, cfg *config.Config, limit int) error {
	if cfg.Usage.DatabasePath == "" {
		return errors.New("usage recording is disabled (usage.database_path is empty)")
	}
	if _, err := os.Stat(cfg.Usage.DatabasePath); err != nil {
		return fmt.Errorf("no usage ledger at %s", cfg.Usage.DatabasePath)
	}

	store, err := usage.Open(cfg.Usage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tSTEPS\tCOST\tTASK")
	completed := 0
	for _, r := range runs {
		if r.Status == "completed" {
			completed++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t$%.4f\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Iterations, r.CostUSD, truncate(r.Description, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(runs) > 0 {
		fmt.Printf("\n%d of %d runs completed (%.0f%%)\n", completed, len(runs), 100*float64(completed)/float64(len(runs)))
	}

	end := time.Now()
	sum, err := store.Summary(ctx, end.AddDate(0, 0, -30), end)
	if err != nil {
		return err
	}
	fmt.Printf("Last 30 days: %d model calls, %d input / %d output tokens, $%.4f\n",
		sum.TotalRecords, sum.TotalInputTokens, sum.TotalOutputTokens, sum.TotalCostUSD)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
