// Package history records finished optimization runs so that past squads can
// be listed and compared.
package history

import (
	"context"
	"time"
)

// Pick is one selected player as stored in history.
type Pick struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Team     string  `json:"team"`
	Position string  `json:"position"`
	Cost     float64 `json:"cost"`
	Score    float64 `json:"score"`
}

// RunRecord captures one optimization run and its squad.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Criterion string    `json:"criterion"`
	Formation string    `json:"formation"`
	Budget    float64   `json:"budget"`
	Status    string    `json:"status"`
	Objective float64   `json:"objective"`
	Cost      float64   `json:"cost"`
	Starters  []Pick    `json:"starters"`
	Bench     []Pick    `json:"bench"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	Criterion string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Match reports whether rec passes the time and criterion filters.
func (q Query) Match(rec RunRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	return q.Criterion == "" || rec.Criterion == q.Criterion
}

// Tail applies the limit to records ordered oldest first.
func (q Query) Tail(recs []RunRecord) []RunRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// Nop discards records.
type Nop struct{}

func (Nop) Append(context.Context, RunRecord) error           { return nil }
func (Nop) Query(context.Context, Query) ([]RunRecord, error) { return nil, nil }
func (Nop) Close() error                                      { return nil }
