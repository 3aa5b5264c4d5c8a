package squad

import "errors"

var (
	// ErrInvalidInput reports a malformed player table.
	ErrInvalidInput = errors.New("invalid player table")
	// ErrInvalidConfig reports an unusable optimizer configuration.
	ErrInvalidConfig = errors.New("invalid optimizer configuration")
	// ErrNoFeasibleSquad is returned when no squad satisfies the constraints.
	ErrNoFeasibleSquad = errors.New("no feasible squad")
	// ErrSolver wraps failures of the MILP solver and solutions that cannot
	// be trusted as optimal.
	ErrSolver = errors.New("solver failure")
)
