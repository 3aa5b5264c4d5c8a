package squad

import (
	"fmt"
	"math"

	"github.com/kilianp07/squadopt/core/model"
)

// Config selects the criterion, formation and budget of one optimization.
type Config struct {
	// Criterion names the projection used as objective weight.
	Criterion string
	Formation model.Formation
	// Budget caps the total cost of starters and bench.
	Budget float64
	// Locked lists player IDs that must be in the squad.
	Locked []string
	// Excluded lists player IDs that may not be selected in any role.
	Excluded []string
}

// Validate checks the configuration on its own, without the player table.
func (c Config) Validate() error {
	if c.Criterion == "" {
		return fmt.Errorf("%w: criterion is required", ErrInvalidConfig)
	}
	if err := c.Formation.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Budget < 0 || math.IsNaN(c.Budget) || math.IsInf(c.Budget, 0) {
		return fmt.Errorf("%w: budget %v must be a non-negative number", ErrInvalidConfig, c.Budget)
	}
	if len(c.Locked) > model.SquadSize {
		return fmt.Errorf("%w: %d locked players exceed squad size %d", ErrInvalidConfig, len(c.Locked), model.SquadSize)
	}
	excluded := make(map[string]bool, len(c.Excluded))
	for _, id := range c.Excluded {
		excluded[id] = true
	}
	seen := make(map[string]bool, len(c.Locked))
	for _, id := range c.Locked {
		if excluded[id] {
			return fmt.Errorf("%w: player %s is both locked and excluded", ErrInvalidConfig, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: player %s locked twice", ErrInvalidConfig, id)
		}
		seen[id] = true
	}
	return nil
}

// validateTable checks the player table against the configuration before any
// variable is created. Unknown positions are rejected instead of silently
// dropping the player from every position constraint.
func validateTable(players []model.Player, cfg Config) error {
	if len(players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidInput)
	}
	ids := make(map[string]bool, len(players))
	for i, p := range players {
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: row %d: missing ID", ErrInvalidInput, i)
		case ids[p.ID]:
			return fmt.Errorf("%w: row %d: duplicate ID %s", ErrInvalidInput, i, p.ID)
		case p.Team == "":
			return fmt.Errorf("%w: row %d (%s): missing team", ErrInvalidInput, i, p.ID)
		case !p.Position.Valid():
			return fmt.Errorf("%w: row %d (%s): unknown position %q", ErrInvalidInput, i, p.ID, p.Position)
		case p.Cost < 0 || math.IsNaN(p.Cost) || math.IsInf(p.Cost, 0):
			return fmt.Errorf("%w: row %d (%s): cost %v must be a non-negative number", ErrInvalidInput, i, p.ID, p.Cost)
		}
		score, ok := p.Score(cfg.Criterion)
		if !ok {
			return fmt.Errorf("%w: row %d (%s): missing criterion %q", ErrInvalidInput, i, p.ID, cfg.Criterion)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("%w: row %d (%s): criterion %q is not a number", ErrInvalidInput, i, p.ID, cfg.Criterion)
		}
		ids[p.ID] = true
	}
	for _, id := range append(append([]string(nil), cfg.Locked...), cfg.Excluded...) {
		if !ids[id] {
			return fmt.Errorf("%w: unknown player %s", ErrInvalidConfig, id)
		}
	}
	return nil
}
