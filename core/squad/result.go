package squad

import (
	"time"

	"github.com/kilianp07/squadopt/core/model"
)

// Row is one line of the combined result table. Role and Index together form
// the row key.
type Row struct {
	Role     model.Role     `json:"-"`
	Index    int            `json:"index"`
	Name     string         `json:"name"`
	ID       string         `json:"id"`
	Team     string         `json:"team"`
	Position model.Position `json:"position"`
	Cost     float64        `json:"cost"`
	Score    float64        `json:"score"`
}

// Table is the combined result: all starters followed by the bench.
type Table []Row

// Role returns the rows keyed by r, in index order.
func (t Table) Role(r model.Role) []Row {
	var out []Row
	for _, row := range t {
		if row.Role == r {
			out = append(out, row)
		}
	}
	return out
}

// Cost sums the cost of every row.
func (t Table) Cost() float64 {
	var c float64
	for _, r := range t {
		c += r.Cost
	}
	return c
}

// Result is an optimal squad.
type Result struct {
	RunID     string
	Criterion string
	Formation model.Formation
	Budget    float64
	// Decisions holds the raw selection records of every role with their
	// resolved values.
	Decisions Decisions
	Table     Table
	// Objective is the optimal projected score of the starting eleven.
	Objective float64
	Nodes     int
	Duration  time.Duration
}

// Starters returns the starting eleven.
func (r *Result) Starters() []Row { return r.Table.Role(model.Starter) }

// Bench returns the substitutes.
func (r *Result) Bench() []Row { return r.Table.Role(model.Bench) }

// PositionGroup holds the starters and substitutes playing one position.
type PositionGroup struct {
	Starters []Row
	Bench    []Row
}

// ByPosition groups the table by position for display.
func ByPosition(t Table) map[model.Position]PositionGroup {
	out := make(map[model.Position]PositionGroup, len(model.Positions))
	for _, p := range model.Positions {
		out[p] = PositionGroup{}
	}
	for _, row := range t {
		g := out[row.Position]
		switch row.Role {
		case model.Starter:
			g.Starters = append(g.Starters, row)
		case model.Bench:
			g.Bench = append(g.Bench, row)
		}
		out[row.Position] = g
	}
	return out
}

func toRow(s Selection, index int) Row {
	return Row{
		Role:     s.Role,
		Index:    index,
		Name:     s.Player.Name,
		ID:       s.Player.ID,
		Team:     s.Player.Team,
		Position: s.Player.Position,
		Cost:     s.Player.Cost,
		Score:    s.Score,
	}
}
