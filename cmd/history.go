package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/squadopt/app"
	"github.com/kilianp07/squadopt/config"
	corehistory "github.com/kilianp07/squadopt/core/history"
	"github.com/kilianp07/squadopt/internal/report"
)

type historyOptions struct {
	criterion string
	since     string
	limit     int
	format    string
	chart     string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}
	c := &cobra.Command{
		Use:   "history",
		Short: "List recorded optimization runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, root, opts)
		},
	}
	f := c.Flags()
	f.StringVar(&opts.criterion, "criterion", "", "only runs optimized for this criterion")
	f.StringVar(&opts.since, "since", "", "only runs newer than a duration (72h) or a date (2006-01-02)")
	f.IntVarP(&opts.limit, "limit", "n", 20, "most recent runs to show, 0 for all")
	f.StringVarP(&opts.format, "format", "o", "text", "output format: text or json")
	f.StringVar(&opts.chart, "chart", "", "also write an HTML chart of the runs to this file")
	return c
}

// parseSince accepts a duration back from now or a calendar date in UTC.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("since %q: want a duration or YYYY-MM-DD", s)
	}
	return t, nil
}

func runHistory(cmd *cobra.Command, root *rootOptions, opts *historyOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	start, err := parseSince(opts.since, time.Now())
	if err != nil {
		return err
	}
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	recs, err := svc.History(cmd.Context(), corehistory.Query{
		Start:     start,
		Criterion: opts.criterion,
		Limit:     opts.limit,
	})
	if err != nil {
		return err
	}
	if opts.chart != "" {
		if err := writeChart(opts.chart, recs); err != nil {
			return err
		}
	}
	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []corehistory.RunRecord{}
		}
		return enc.Encode(recs)
	}
	return report.History(cmd.OutOrStdout(), recs)
}

func writeChart(path string, recs []corehistory.RunRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.HistoryChart(f, recs)
}
