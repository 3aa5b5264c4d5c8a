package squad

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/squadopt/core/logger"
	"github.com/kilianp07/squadopt/core/metrics"
	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/core/model"
)

// Optimizer picks squads by building and solving a fresh MILP per call. It
// keeps no state between calls; concurrent calls are safe when the solver is.
type Optimizer struct {
	solver milp.Solver
	log    logger.Logger
	sink   metrics.MetricsSink
}

// NewOptimizer wires an optimizer. Nil arguments fall back to an exact
// branch-and-bound solver, a no-op logger and a no-op metrics sink.
func NewOptimizer(solver milp.Solver, log logger.Logger, sink metrics.MetricsSink) *Optimizer {
	if log == nil {
		log = logger.NopLogger{}
	}
	if solver == nil {
		solver = milp.NewBranchAndBound(milp.Options{}, log)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Optimizer{solver: solver, log: log, sink: sink}
}

// Pick returns the squad maximizing the starters' projected score under
// cfg.Criterion subject to the formation, budget and club limits.
//
// It fails with ErrInvalidInput or ErrInvalidConfig before solving,
// ErrNoFeasibleSquad when the constraints admit no squad, and ErrSolver when
// the solver fails or cannot prove optimality.
func (o *Optimizer) Pick(ctx context.Context, players []model.Player, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateTable(players, cfg); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	m := milp.NewModel("squad_" + runID)
	d := make(Decisions, len(model.Roles))
	for _, r := range model.Roles {
		sel, err := BuildVariables(m, players, r, cfg.Criterion)
		if err != nil {
			return nil, err
		}
		d[r] = sel
	}
	if err := Assemble(m, d, players, cfg); err != nil {
		return nil, err
	}
	o.log.Debugw("squad model assembled", map[string]any{
		"run_id":      runID,
		"players":     len(players),
		"variables":   m.NumVariables(),
		"constraints": m.NumConstraints(),
	})

	ev := metrics.SolveEvent{
		RunID:     runID,
		Criterion: cfg.Criterion,
		Formation: cfg.Formation.String(),
		Budget:    cfg.Budget,
		Time:      start,
	}
	sol, err := o.solver.Solve(ctx, m)
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Status = "error"
		o.record(ev)
		return nil, fmt.Errorf("%w: %w", ErrSolver, err)
	}
	ev.Status = sol.Status.String()
	ev.Nodes = sol.Nodes

	switch sol.Status {
	case milp.StatusOptimal:
	case milp.StatusInfeasible:
		o.record(ev)
		hints := diagnose(players, cfg)
		o.log.Warnf("run %s infeasible: %v", runID, hints)
		if len(hints) > 0 {
			return nil, fmt.Errorf("%w: formation %s, budget %g: %v", ErrNoFeasibleSquad, cfg.Formation, cfg.Budget, hints)
		}
		return nil, fmt.Errorf("%w: formation %s, budget %g", ErrNoFeasibleSquad, cfg.Formation, cfg.Budget)
	default:
		o.record(ev)
		return nil, fmt.Errorf("%w: solver stopped with status %s", ErrSolver, sol.Status)
	}

	res, err := extract(d, sol, cfg)
	if err != nil {
		ev.Status = "error"
		o.record(ev)
		return nil, err
	}
	res.RunID = runID
	res.Duration = ev.Duration
	ev.Objective = res.Objective
	ev.Cost = res.Table.Cost()
	o.record(ev)
	o.recordSquad(res, start)
	o.log.Infof("run %s: objective %.3f cost %.1f/%.1f in %d nodes (%s)",
		runID, res.Objective, ev.Cost, cfg.Budget, sol.Nodes, ev.Duration)
	return res, nil
}

// Pick optimizes with a default branch-and-bound solver and no observability.
func Pick(ctx context.Context, players []model.Player, cfg Config) (*Result, error) {
	return NewOptimizer(nil, nil, nil).Pick(ctx, players, cfg)
}

func (o *Optimizer) record(ev metrics.SolveEvent) {
	if err := o.sink.RecordSolve(ev); err != nil {
		o.log.Warnf("record solve %s: %v", ev.RunID, err)
	}
}

func (o *Optimizer) recordSquad(res *Result, at time.Time) {
	rec, ok := o.sink.(metrics.SquadRecorder)
	if !ok {
		return
	}
	ev := metrics.SquadEvent{RunID: res.RunID, Criterion: res.Criterion, Time: at}
	for _, r := range res.Table {
		ev.Players = append(ev.Players, metrics.SelectedPlayer{
			ID:       r.ID,
			Name:     r.Name,
			Team:     r.Team,
			Position: r.Position.String(),
			Role:     r.Role.String(),
			Cost:     r.Cost,
			Score:    r.Score,
		})
	}
	if err := rec.RecordSquad(ev); err != nil {
		o.log.Warnf("record squad %s: %v", res.RunID, err)
	}
}

// extract resolves every selection and builds the result table. The slot
// counts are checked against the formation so that a solver returning a
// partial assignment never yields an undersized squad.
func extract(d Decisions, sol *milp.Solution, cfg Config) (*Result, error) {
	if !sol.HasValues() {
		return nil, fmt.Errorf("%w: optimal status without values", ErrSolver)
	}
	res := &Result{
		Criterion: cfg.Criterion,
		Formation: cfg.Formation,
		Budget:    cfg.Budget,
		Decisions: make(Decisions, len(d)),
		Objective: sol.Objective,
		Nodes:     sol.Nodes,
	}
	for _, r := range model.Roles {
		resolved := make([]Selection, len(d[r]))
		for i, s := range d[r] {
			s.Value = sol.Value(s.Var)
			resolved[i] = s
		}
		res.Decisions[r] = resolved
	}

	for _, r := range []model.Role{model.Starter, model.Bench} {
		counts := make(map[model.Position]int)
		index := 0
		for _, s := range res.Decisions[r] {
			if s.Selected() {
				res.Table = append(res.Table, toRow(s, index))
				index++
				counts[s.Player.Position]++
			}
		}
		for pos, want := range cfg.Formation.Targets(r) {
			if counts[pos] != want {
				return nil, fmt.Errorf("%w: %s has %d %s, want %d", ErrSolver, r, counts[pos], pos, want)
			}
		}
	}
	for _, s := range res.Decisions[model.Captain] {
		if s.Selected() {
			return nil, fmt.Errorf("%w: captain %s selected although captaincy is disabled", ErrSolver, s.Player.ID)
		}
	}
	return res, nil
}

// diagnose looks for simple reasons a configuration cannot be satisfied and
// names the constraints involved.
func diagnose(players []model.Player, cfg Config) []string {
	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, id := range cfg.Excluded {
		excluded[id] = true
	}
	costs := make(map[model.Position][]float64)
	for _, p := range players {
		if !excluded[p.ID] {
			costs[p.Position] = append(costs[p.Position], p.Cost)
		}
	}

	var hints []string
	var cheapest float64
	starters, bench := cfg.Formation.StarterTargets(), cfg.Formation.BenchTargets()
	for _, pos := range model.Positions {
		need := starters[pos] + bench[pos]
		have := costs[pos]
		if len(have) < need {
			hints = append(hints, fmt.Sprintf("starter_%s+bench_%s: need %d players, table has %d", pos, pos, need, len(have)))
			continue
		}
		sort.Float64s(have)
		for _, c := range have[:need] {
			cheapest += c
		}
	}
	if len(hints) == 0 && cheapest > cfg.Budget {
		hints = append(hints, fmt.Sprintf("budget: cheapest squad by position costs %g", cheapest))
	}
	if teams := len(clubs(players)); teams*model.MaxPerClub < model.SquadSize {
		hints = append(hints, fmt.Sprintf("club_*: %d clubs allow at most %d players", teams, teams*model.MaxPerClub))
	}
	return hints
}

// IsInfeasible reports whether err means no squad satisfies the constraints.
func IsInfeasible(err error) bool { return errors.Is(err, ErrNoFeasibleSquad) }
