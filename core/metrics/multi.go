package metrics

import "errors"

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSquad forwards squad composition to sinks that support it.
func (m *MultiSink) RecordSquad(ev SquadEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SquadRecorder); ok {
			if err := rec.RecordSquad(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink that buffers, attempting all of them.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
