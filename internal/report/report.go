// Package report renders squads and run history for terminals.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kilianp07/squadopt/core/history"
	"github.com/kilianp07/squadopt/core/model"
	"github.com/kilianp07/squadopt/core/squad"
)

// Text writes res grouped by position, starters before substitutes.
func Text(w io.Writer, res *squad.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Formation %s\tcriterion %s\tbudget %.1f\tcost %.1f\n",
		res.Formation, res.Criterion, res.Budget, res.Table.Cost())
	fmt.Fprintf(tw, "Projected score\t%.2f\t\t\n\n", res.Objective)
	fmt.Fprintln(tw, "POS\tROLE\tNAME\tTEAM\tCOST\t"+strings.ToUpper(res.Criterion))

	groups := squad.ByPosition(res.Table)
	for _, pos := range model.Positions {
		g := groups[pos]
		for _, r := range g.Starters {
			writeRow(tw, r)
		}
		for _, r := range g.Bench {
			writeRow(tw, r)
		}
	}
	return tw.Flush()
}

func writeRow(w io.Writer, r squad.Row) {
	role := "XI"
	if r.Role == model.Bench {
		role = "sub"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%.2f\n", r.Position, role, r.Name, r.Team, r.Cost, r.Score)
}

// History writes one line per run, oldest first.
func History(w io.Writer, recs []history.RunRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tCRITERION\tFORMATION\tSCORE\tCOST\tTOP PICK")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.1f/%.1f\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04"), shortID(r.RunID), r.Criterion, r.Formation,
			r.Objective, r.Cost, r.Budget, topScorer(r.Starters))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// topScorer names the starter with the best projection.
func topScorer(starters []history.Pick) string {
	best := -1
	for i, p := range starters {
		if best < 0 || p.Score > starters[best].Score {
			best = i
		}
	}
	if best < 0 {
		return "-"
	}
	return starters[best].Name
}
