package report

import (
	"errors"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/squadopt/core/history"
)

// ErrNoRuns is returned when a chart is requested for an empty history.
var ErrNoRuns = errors.New("no runs to chart")

// HistoryChart renders projected score and squad cost of each run as an HTML
// line chart.
func HistoryChart(w io.Writer, recs []history.RunRecord) error {
	if len(recs) == 0 {
		return ErrNoRuns
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Squad history"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Run"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Points / cost"}),
	)

	xAxis := make([]string, len(recs))
	score := make([]opts.LineData, len(recs))
	cost := make([]opts.LineData, len(recs))
	for i, r := range recs {
		xAxis[i] = r.Timestamp.Format("2006-01-02 15:04") + " " + r.Criterion
		score[i] = opts.LineData{Value: r.Objective}
		cost[i] = opts.LineData{Value: r.Cost}
	}
	line.SetXAxis(xAxis).
		AddSeries("Projected score", score).
		AddSeries("Cost", cost)
	return line.Render(w)
}
