package milp

import (
	"context"
	"errors"
)

// Status is the outcome reported by a solver.
type Status int

const (
	// StatusOptimal means a provably optimal integer solution was found.
	StatusOptimal Status = iota
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective can grow without limit.
	StatusUnbounded
	// StatusNodeLimit means the search stopped before optimality was proven.
	StatusNodeLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNodeLimit:
		return "node_limit"
	default:
		return "unknown"
	}
}

// Solution holds the result of a solve.
type Solution struct {
	Status Status
	// Objective is the objective value of the returned assignment in the
	// model's own sense. It is only meaningful when HasValues is true.
	Objective float64
	// Nodes counts the branch-and-bound nodes explored.
	Nodes  int
	values []float64
}

// HasValues reports whether the solution carries a variable assignment.
func (s *Solution) HasValues() bool { return len(s.values) > 0 }

// Value returns the resolved value of v, or zero when no assignment exists.
func (s *Solution) Value(v Var) float64 {
	if v.index < 0 || v.index >= len(s.values) {
		return 0
	}
	return s.values[v.index]
}

// Values returns a copy of the full assignment.
func (s *Solution) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Solver solves a model. Implementations must not retain the model after
// Solve returns.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// ErrLP wraps failures of the underlying LP routine other than infeasibility
// or unboundedness.
var ErrLP = errors.New("lp relaxation failed")
