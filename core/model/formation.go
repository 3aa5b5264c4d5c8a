package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Formation is the shape of the starting eleven. The goalkeeper count is
// always one.
type Formation struct {
	Defenders   int
	Midfielders int
	Forwards    int
}

// Upper bounds on outfield players per position across the whole squad.
const (
	squadDefenders   = 5
	squadMidfielders = 5
	squadForwards    = 3
)

// ParseFormation reads a formation written as "3-4-3".
func ParseFormation(s string) (Formation, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Formation{}, fmt.Errorf("formation %q: want DEF-MID-FWD", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Formation{}, fmt.Errorf("formation %q: %w", s, err)
		}
		n[i] = v
	}
	f := Formation{Defenders: n[0], Midfielders: n[1], Forwards: n[2]}
	return f, f.Validate()
}

func (f Formation) String() string {
	return fmt.Sprintf("%d-%d-%d", f.Defenders, f.Midfielders, f.Forwards)
}

// Validate checks the formation fills exactly ten outfield starter slots and
// leaves a non-negative bench count for every position.
func (f Formation) Validate() error {
	switch {
	case f.Defenders < 0 || f.Defenders > squadDefenders:
		return fmt.Errorf("formation %s: defenders must be within [0,%d]", f, squadDefenders)
	case f.Midfielders < 0 || f.Midfielders > squadMidfielders:
		return fmt.Errorf("formation %s: midfielders must be within [0,%d]", f, squadMidfielders)
	case f.Forwards < 0 || f.Forwards > squadForwards:
		return fmt.Errorf("formation %s: forwards must be within [0,%d]", f, squadForwards)
	}
	if sum := f.Defenders + f.Midfielders + f.Forwards + Goalkeepers; sum != StarterCount {
		return fmt.Errorf("formation %s: %d starters, want %d", f, sum, StarterCount)
	}
	return nil
}

// StarterTargets returns the required number of starters per position.
func (f Formation) StarterTargets() map[Position]int {
	return map[Position]int{
		Goalkeeper: Goalkeepers,
		Defender:   f.Defenders,
		Midfielder: f.Midfielders,
		Forward:    f.Forwards,
	}
}

// BenchTargets returns the required number of substitutes per position.
func (f Formation) BenchTargets() map[Position]int {
	return map[Position]int{
		Goalkeeper: Goalkeepers,
		Defender:   squadDefenders - f.Defenders,
		Midfielder: squadMidfielders - f.Midfielders,
		Forward:    squadForwards - f.Forwards,
	}
}

// Targets returns the per-position counts for role. Captain has no targets.
func (f Formation) Targets(r Role) map[Position]int {
	switch r {
	case Starter:
		return f.StarterTargets()
	case Bench:
		return f.BenchTargets()
	default:
		return nil
	}
}
