package history

import (
	"time"

	"github.com/kilianp07/squadopt/core/squad"
)

// FromResult converts an optimal squad into a record stamped at.
func FromResult(res *squad.Result, at time.Time) RunRecord {
	rec := RunRecord{
		RunID:     res.RunID,
		Timestamp: at.UTC(),
		Criterion: res.Criterion,
		Formation: res.Formation.String(),
		Budget:    res.Budget,
		Status:    "optimal",
		Objective: res.Objective,
		Cost:      res.Table.Cost(),
	}
	for _, r := range res.Starters() {
		rec.Starters = append(rec.Starters, toPick(r))
	}
	for _, r := range res.Bench() {
		rec.Bench = append(rec.Bench, toPick(r))
	}
	return rec
}

func toPick(r squad.Row) Pick {
	return Pick{ID: r.ID, Name: r.Name, Team: r.Team, Position: r.Position.String(), Cost: r.Cost, Score: r.Score}
}
