package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/squadopt/core/metrics"
)

// PromConfig configures a PromSink.
type PromConfig struct {
	// Textfile, when set, receives the gathered metrics on Flush in the
	// node_exporter textfile format.
	Textfile string `json:"textfile"`
}

// PromSink records optimization runs in Prometheus metrics.
type PromSink struct {
	solves     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	objective  *prometheus.GaugeVec
	cost       *prometheus.GaugeVec
	nodes      prometheus.Histogram
	selections *prometheus.CounterVec

	gatherer prometheus.Gatherer
	textfile string
}

// NewPromSink registers squad metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics that
// are already registered are reused.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{textfile: cfg.Textfile}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	} else {
		s.gatherer = prometheus.DefaultGatherer
	}

	var err error
	if s.solves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squad_solves_total",
		Help: "Total number of squad optimizations by solver status",
	}, []string{"status", "criterion"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "squad_solve_duration_seconds",
		Help:    "Wall time spent building and solving the squad model",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "squad_objective",
		Help: "Projected score of the last optimal starting eleven",
	}, []string{"criterion"})); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "squad_cost",
		Help: "Total cost of the last optimal squad",
	}, []string{"criterion"})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "squad_branch_nodes",
		Help:    "Branch-and-bound nodes explored per solve",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})); err != nil {
		return nil, err
	}
	if s.selections, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squad_selections_total",
		Help: "Players selected by position and role",
	}, []string{"position", "role"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve counts the run and, for optimal runs, updates the gauges.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Status, ev.Criterion).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	if ev.Nodes > 0 {
		s.nodes.Observe(float64(ev.Nodes))
	}
	if ev.Status == "optimal" {
		s.objective.WithLabelValues(ev.Criterion).Set(ev.Objective)
		s.cost.WithLabelValues(ev.Criterion).Set(ev.Cost)
	}
	return nil
}

// RecordSquad counts the selected players.
func (s *PromSink) RecordSquad(ev coremetrics.SquadEvent) error {
	for _, p := range ev.Players {
		s.selections.WithLabelValues(p.Position, p.Role).Inc()
	}
	return nil
}

// Flush writes the textfile export when one is configured.
func (s *PromSink) Flush() error {
	if s.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.textfile, s.gatherer); err != nil {
		return fmt.Errorf("prometheus textfile %s: %w", s.textfile, err)
	}
	return nil
}
