package model

import (
	"fmt"
	"strings"
)

// Position is the standardized playing position of a player.
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists every position in squad display order.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

// Valid reports whether p is one of the standardized labels.
func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	default:
		return false
	}
}

func (p Position) String() string { return string(p) }

// ParsePosition accepts only the standardized labels GK, DEF, MID and FWD.
// Surrounding whitespace and letter case are ignored.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown position %q", s)
	}
	return p, nil
}

// Role is the slot a selected player occupies in the squad.
type Role int

const (
	Starter Role = iota
	Bench
	Captain
)

// Roles lists all roles in the order variables are built.
var Roles = []Role{Starter, Bench, Captain}

// String returns the label used for constraint names and output keys.
func (r Role) String() string {
	switch r {
	case Starter:
		return "Starters"
	case Bench:
		return "Bench"
	case Captain:
		return "Captain"
	default:
		return "unknown"
	}
}

// Weight is the multiplier applied to a player's score when selected in this
// role. Bench players cost budget but earn nothing.
func (r Role) Weight() float64 {
	switch r {
	case Starter, Captain:
		return 1
	default:
		return 0
	}
}

// InSquad reports whether the role takes a squad slot and spends budget.
func (r Role) InSquad() bool { return r == Starter || r == Bench }
