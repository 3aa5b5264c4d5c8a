package metrics

import "time"

// SolveEvent describes one optimization run.
type SolveEvent struct {
	RunID     string
	Criterion string
	Formation string
	// Status is the solver outcome, or "error" when the run failed before a
	// status was available.
	Status    string
	Objective float64
	Cost      float64
	Budget    float64
	Nodes     int
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records optimization runs for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// SelectedPlayer is one member of an optimized squad.
type SelectedPlayer struct {
	ID       string
	Name     string
	Team     string
	Position string
	Role     string
	Cost     float64
	Score    float64
}

// SquadEvent lists the players picked by a successful run.
type SquadEvent struct {
	RunID     string
	Criterion string
	Players   []SelectedPlayer
	Time      time.Time
}

// SquadRecorder is implemented by sinks able to record squad composition.
type SquadRecorder interface {
	RecordSquad(ev SquadEvent) error
}

// Flusher is implemented by sinks that buffer data until the run ends.
type Flusher interface {
	Flush() error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error { return nil }
func (NopSink) RecordSquad(SquadEvent) error { return nil }
func (NopSink) Flush() error                 { return nil }
