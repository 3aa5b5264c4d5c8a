// Package export writes optimized squads in machine readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/squadopt/core/squad"
)

// Squad is the JSON document describing an optimal squad.
type Squad struct {
	RunID     string      `json:"run_id"`
	Criterion string      `json:"criterion"`
	Formation string      `json:"formation"`
	Budget    float64     `json:"budget"`
	Cost      float64     `json:"cost"`
	Objective float64     `json:"objective"`
	Nodes     int         `json:"nodes"`
	Starters  []squad.Row `json:"starters"`
	Bench     []squad.Row `json:"bench"`
}

// NewSquad builds the JSON document for res.
func NewSquad(res *squad.Result) Squad {
	return Squad{
		RunID:     res.RunID,
		Criterion: res.Criterion,
		Formation: res.Formation.String(),
		Budget:    res.Budget,
		Cost:      res.Table.Cost(),
		Objective: res.Objective,
		Nodes:     res.Nodes,
		Starters:  res.Starters(),
		Bench:     res.Bench(),
	}
}

// WriteJSON writes the squad to w as indented JSON.
func WriteJSON(w io.Writer, res *squad.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSquad(res))
}

// WriteCSV writes the combined table to w, one row per player keyed by role
// and index.
func WriteCSV(w io.Writer, res *squad.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"role", "index", "name", "id", "team", "position", "cost", res.Criterion}); err != nil {
		return err
	}
	for _, r := range res.Table {
		rec := []string{
			r.Role.String(),
			strconv.Itoa(r.Index),
			r.Name,
			r.ID,
			r.Team,
			r.Position.String(),
			strconv.FormatFloat(r.Cost, 'f', -1, 64),
			strconv.FormatFloat(r.Score, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
