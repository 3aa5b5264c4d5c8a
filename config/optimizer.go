package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/squadopt/core/model"
	"github.com/kilianp07/squadopt/core/squad"
)

// OptimizerConfig holds the settings of the pick command. Criterion,
// formation and budget have no defaults: each must come from the file, the
// environment or a flag. Locked and Excluded may name players by ID or by name.
type OptimizerConfig struct {
	Criterion string   `json:"criterion"`
	Formation string   `json:"formation"`
	Budget    *float64 `json:"budget"`
	Locked    []string `json:"locked"`
	Excluded  []string `json:"excluded"`
}

// Validate checks the formation and budget that are set. Missing settings
// may still be supplied on the command line and are reported by Squad.
func (c OptimizerConfig) Validate() error {
	if c.Formation != "" {
		if _, err := model.ParseFormation(c.Formation); err != nil {
			return err
		}
	}
	if c.Budget != nil && (*c.Budget < 0 || math.IsNaN(*c.Budget) || math.IsInf(*c.Budget, 0)) {
		return fmt.Errorf("budget %v must be a non-negative number", *c.Budget)
	}
	return nil
}

// Squad converts the settings into an optimizer configuration. It fails with
// squad.ErrInvalidConfig when the criterion, formation or budget is unset.
// Locked and Excluded are copied as given and must already hold player IDs.
func (c OptimizerConfig) Squad() (squad.Config, error) {
	var missing []string
	if c.Criterion == "" {
		missing = append(missing, "criterion")
	}
	if c.Formation == "" {
		missing = append(missing, "formation")
	}
	if c.Budget == nil {
		missing = append(missing, "budget")
	}
	if len(missing) > 0 {
		return squad.Config{}, fmt.Errorf("%w: %s required", squad.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	f, err := model.ParseFormation(c.Formation)
	if err != nil {
		return squad.Config{}, fmt.Errorf("%w: %v", squad.ErrInvalidConfig, err)
	}
	return squad.Config{
		Criterion: c.Criterion,
		Formation: f,
		Budget:    *c.Budget,
		Locked:    append([]string(nil), c.Locked...),
		Excluded:  append([]string(nil), c.Excluded...),
	}, nil
}

// InputConfig locates the player table.
type InputConfig struct {
	Path string `json:"path"`
}
