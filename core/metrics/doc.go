// Package metrics defines the sinks that observe optimization runs. Every
// sink records SolveEvents; sinks that can also store squad composition or
// that buffer output implement SquadRecorder and Flusher. Sinks are built from
// configuration through NewMetricsSink, which returns a MultiSink when several
// are configured. Concrete sinks are registered by infra/metrics.
package metrics
