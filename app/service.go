// Package app wires configuration into a ready to use squad service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kilianp07/squadopt/config"
	corehistory "github.com/kilianp07/squadopt/core/history"
	coremetrics "github.com/kilianp07/squadopt/core/metrics"
	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/core/model"
	"github.com/kilianp07/squadopt/core/squad"
	"github.com/kilianp07/squadopt/infra/history"
	"github.com/kilianp07/squadopt/infra/logger"
	_ "github.com/kilianp07/squadopt/infra/metrics"
	"github.com/kilianp07/squadopt/infra/mqtt"
)

// Publisher sends run records to subscribers.
type Publisher interface {
	Publish(ctx context.Context, rec corehistory.RunRecord) (string, error)
	Disconnect()
}

var newPublisher = func(cfg mqtt.Config, log logger.Logger) (Publisher, error) {
	return mqtt.NewPublisher(cfg, log)
}

// ErrPublishDisabled is returned by Publish when no broker is configured.
var ErrPublishDisabled = errors.New("publishing requires mqtt.broker")

// Service runs optimizations and records them in history, metrics and,
// on request, MQTT.
type Service struct {
	cfg       *config.Config
	log       *logger.ZerologLogger
	optimizer *squad.Optimizer
	sink      coremetrics.MetricsSink
	store     corehistory.Store

	mu        sync.Mutex
	publisher Publisher
}

// New creates a Service from the configuration. Log output goes to logOut,
// or stderr when nil.
func New(cfg *config.Config, logOut io.Writer) (*Service, error) {
	if logOut == nil {
		logOut = os.Stderr
	}
	zl, err := logger.NewWithOptions("squadopt", logger.Options{
		Level:   cfg.Logging.Level,
		Out:     logOut,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := history.New(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	solver := milp.NewBranchAndBound(cfg.Solver, zl.With("module", "milp"))
	return &Service{
		cfg:       cfg,
		log:       zl,
		optimizer: squad.NewOptimizer(solver, zl.With("module", "squad"), sink),
		sink:      sink,
		store:     store,
	}, nil
}

// Pick optimizes the squad and appends the run to history. A history failure
// is logged and does not discard the squad.
func (s *Service) Pick(ctx context.Context, players []model.Player, sc squad.Config) (*squad.Result, corehistory.RunRecord, error) {
	res, err := s.optimizer.Pick(ctx, players, sc)
	if err != nil {
		return nil, corehistory.RunRecord{}, err
	}
	rec := corehistory.FromResult(res, time.Now())
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("history append %s: %v", rec.RunID, err)
	}
	return res, rec, nil
}

// History lists recorded runs.
func (s *Service) History(ctx context.Context, q corehistory.Query) ([]corehistory.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// Publish sends rec to the configured MQTT topic, connecting on first use.
func (s *Service) Publish(ctx context.Context, rec corehistory.RunRecord) (string, error) {
	if s.cfg.MQTT.Broker == "" {
		return "", ErrPublishDisabled
	}
	s.mu.Lock()
	if s.publisher == nil {
		p, err := newPublisher(s.cfg.MQTT, s.log.With("module", "mqtt"))
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		s.publisher = p
	}
	p := s.publisher
	s.mu.Unlock()
	return p.Publish(ctx, rec)
}

// Close flushes metrics and releases the history store and MQTT connection.
func (s *Service) Close() error {
	var errs []error
	if f, ok := s.sink.(coremetrics.Flusher); ok {
		if err := f.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("metrics flush: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("history close: %w", err))
	}
	s.mu.Lock()
	if s.publisher != nil {
		s.publisher.Disconnect()
		s.publisher = nil
	}
	s.mu.Unlock()
	return errors.Join(errs...)
}
