package milp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/squadopt/core/logger"
)

// Options tunes the branch-and-bound solver.
type Options struct {
	// LPTolerance is passed to the simplex routine and used for feasibility
	// checks during presolve.
	LPTolerance float64 `json:"lp_tolerance"`
	// IntegralityTolerance is the distance from an integer under which a
	// relaxed value counts as integral.
	IntegralityTolerance float64 `json:"integrality_tolerance"`
	// NodeLimit stops the search after this many nodes. Zero means no limit.
	NodeLimit int `json:"node_limit"`
	// Engine selects the LP routine that bounds each node.
	Engine string `json:"engine"`
}

// LP engines accepted by Options.Engine.
const (
	// EngineDual keeps one tableau for the whole search and re-solves each
	// node with a warm-started dual simplex. Nodes it fails on are retried
	// with EngineGonum.
	EngineDual = "dual"
	// EngineGonum rebuilds the relaxation at every node and solves it with
	// gonum's primal simplex.
	EngineGonum = "gonum"
)

// SetDefaults fills zero tolerances.
func (o *Options) SetDefaults() {
	if o.LPTolerance <= 0 {
		o.LPTolerance = 1e-9
	}
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = 1e-6
	}
	if o.Engine == "" {
		o.Engine = EngineDual
	}
}

// Validate rejects negative limits and unknown engines.
func (o Options) Validate() error {
	if o.NodeLimit < 0 {
		return fmt.Errorf("node_limit must not be negative")
	}
	switch o.Engine {
	case "", EngineDual, EngineGonum:
		return nil
	default:
		return fmt.Errorf("unknown engine %q", o.Engine)
	}
}

// BranchAndBound is an exact MILP solver. It explores the search tree depth
// first and bounds every node with its LP relaxation, after bound
// propagation. It holds no per-solve state and may be shared.
type BranchAndBound struct {
	opts Options
	log  logger.Logger
}

// NewBranchAndBound returns a solver using opts. A nil logger disables logging.
func NewBranchAndBound(opts Options, log logger.Logger) *BranchAndBound {
	opts.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &BranchAndBound{opts: opts, log: log}
}

type node struct {
	lo, hi []float64
	depth  int
}

// Solve runs branch and bound on m. Infeasible and unbounded models are
// reported through the Solution status; errors are reserved for LP failures
// and context cancellation.
func (s *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	start := time.Now()
	p := compile(m)
	tol := s.opts.LPTolerance

	root := node{lo: append([]float64(nil), p.lower...), hi: append([]float64(nil), p.upper...)}
	if !propagate(p.cons, root.lo, root.hi, tol) {
		return s.infeasibleRoot(m, p, start), nil
	}
	var tab *tableau
	if s.opts.Engine != EngineGonum {
		var ok bool
		if tab, ok = newTableau(p, root.lo, root.hi, tol); !ok {
			return s.infeasibleRoot(m, p, start), nil
		}
	}

	stack := []node{root}
	var best []float64
	bestObj := math.Inf(1)
	nodes, maxDepth := 0, 0
	limited := false

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.opts.NodeLimit > 0 && nodes >= s.opts.NodeLimit {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++
		if nd.depth > maxDepth {
			maxDepth = nd.depth
		}

		r, err := s.bound(m, p, tab, &nd)
		if err != nil {
			return nil, err
		}
		switch r.status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			s.log.Warnf("model %s: relaxation unbounded at node %d", m.name, nodes)
			return &Solution{Status: StatusUnbounded, Nodes: nodes}, nil
		}
		if best != nil && r.obj >= bestObj-gap(bestObj) {
			continue
		}

		j := mostFractional(p, r.x, s.opts.IntegralityTolerance)
		if j < 0 {
			x := roundIntegers(p, r.x)
			if obj := p.evaluate(x); best == nil || obj < bestObj {
				best, bestObj = x, obj
				s.log.Debugf("model %s: incumbent %.6f at node %d", m.name, p.sign*obj, nodes)
			}
			continue
		}

		v := r.x[j]
		down := node{lo: nd.lo, hi: withBound(nd.hi, j, math.Floor(v)), depth: nd.depth + 1}
		up := node{lo: withBound(nd.lo, j, math.Ceil(v)), hi: nd.hi, depth: nd.depth + 1}
		// The stack is LIFO: push the side nearer to v last so it is explored first.
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	sol := &Solution{Nodes: nodes}
	switch {
	case limited:
		sol.Status = StatusNodeLimit
	case best == nil:
		sol.Status = StatusInfeasible
	default:
		sol.Status = StatusOptimal
	}
	if best != nil {
		sol.values = best
		sol.Objective = p.sign * bestObj
	}
	fields := map[string]any{
		"model":       m.name,
		"engine":      s.opts.Engine,
		"status":      sol.Status.String(),
		"nodes":       nodes,
		"max_depth":   maxDepth,
		"variables":   p.n,
		"constraints": len(p.cons),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	}
	if tab != nil {
		fields["pivots"] = tab.pivots
	}
	s.log.Debugw("branch and bound finished", fields)
	return sol, nil
}

func (s *BranchAndBound) infeasibleRoot(m *Model, p *problem, start time.Time) *Solution {
	s.log.Debugw("branch and bound finished", map[string]any{
		"model":       m.name,
		"engine":      s.opts.Engine,
		"status":      StatusInfeasible.String(),
		"nodes":       1,
		"variables":   p.n,
		"constraints": len(p.cons),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return &Solution{Status: StatusInfeasible, Nodes: 1}
}

// bound tightens the bounds of nd in place by propagation and solves its
// relaxation. A node the tableau cannot solve is retried with gonum.
func (s *BranchAndBound) bound(m *Model, p *problem, tab *tableau, nd *node) (relaxation, error) {
	nd.lo = append([]float64(nil), nd.lo...)
	nd.hi = append([]float64(nil), nd.hi...)
	for j := range nd.lo {
		if nd.lo[j] > nd.hi[j] {
			return relaxation{status: StatusInfeasible}, nil
		}
	}
	if !propagate(p.cons, nd.lo, nd.hi, s.opts.LPTolerance) {
		return relaxation{status: StatusInfeasible}, nil
	}
	if tab != nil {
		r, err := tab.relax(p, nd.lo, nd.hi)
		if err == nil {
			return r, nil
		}
		s.log.Warnf("model %s: dual simplex failed, retrying node with gonum: %v", m.name, err)
	}
	return relax(p, nd.lo, nd.hi, s.opts.LPTolerance)
}

func gap(obj float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(obj))
}

func withBound(b []float64, j int, v float64) []float64 {
	out := append([]float64(nil), b...)
	out[j] = v
	return out
}

// mostFractional returns the integer variable whose value is farthest from an
// integer, or -1 when all are integral within tol.
func mostFractional(p *problem, x []float64, tol float64) int {
	best, bestDist := -1, tol
	for j, isInt := range p.integer {
		if !isInt {
			continue
		}
		d := math.Abs(x[j] - math.Round(x[j]))
		if d > bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func roundIntegers(p *problem, x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, isInt := range p.integer {
		if isInt {
			out[j] = math.Round(out[j])
		}
	}
	return out
}
