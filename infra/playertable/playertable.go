// Package playertable loads player tables from CSV files.
package playertable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/squadopt/core/model"
)

// ErrFormat reports a malformed table.
var ErrFormat = errors.New("player table")

var required = []string{"name", "id", "team", "position", "cost"}

var positionAliases = map[string]model.Position{
	"GK": model.Goalkeeper, "GKP": model.Goalkeeper, "G": model.Goalkeeper, "GOALKEEPER": model.Goalkeeper,
	"DEF": model.Defender, "D": model.Defender, "DEFENDER": model.Defender,
	"MID": model.Midfielder, "M": model.Midfielder, "MIDFIELDER": model.Midfielder,
	"FWD": model.Forward, "F": model.Forward, "FW": model.Forward, "ST": model.Forward, "FORWARD": model.Forward,
}

// ParsePosition maps common position labels to the standardized ones.
func ParsePosition(s string) (model.Position, error) {
	if p, ok := positionAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// LoadFile reads the CSV table at path.
func LoadFile(path string) ([]model.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	players, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return players, nil
}

// LoadCSV reads a table whose header names the columns Name, ID, Team,
// Position and Cost in any order and letter case. Every other column holds a
// projection and is keyed by its header as written; empty projection cells
// are left out so the optimizer can report the missing criterion.
func LoadCSV(r io.Reader) ([]model.Player, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrFormat)
		}
		return nil, fmt.Errorf("%w: header: %w", ErrFormat, err)
	}

	cols := make(map[string]int, len(header))
	extra := make(map[int]string)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(h)
		if _, dup := cols[key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrFormat, h)
		}
		cols[key] = i
		if !isRequired(key) {
			extra[i] = h
		}
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrFormat, c)
		}
	}

	var players []model.Player
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		p, err := parseRow(rec, cols, extra)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, line, err)
		}
		players = append(players, p)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no players", ErrFormat)
	}
	return players, nil
}

func parseRow(rec []string, cols map[string]int, extra map[int]string) (model.Player, error) {
	field := func(name string) string { return strings.TrimSpace(rec[cols[name]]) }
	p := model.Player{
		Name:        field("name"),
		ID:          field("id"),
		Team:        field("team"),
		Projections: make(map[string]float64, len(extra)),
	}
	if p.ID == "" {
		return p, errors.New("empty id")
	}
	pos, err := ParsePosition(field("position"))
	if err != nil {
		return p, err
	}
	p.Position = pos
	if p.Cost, err = parseNumber(field("cost")); err != nil {
		return p, fmt.Errorf("cost: %w", err)
	}
	for i, name := range extra {
		raw := strings.TrimSpace(rec[i])
		if raw == "" {
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return p, fmt.Errorf("%s: %w", name, err)
		}
		p.Projections[name] = v
	}
	return p, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

func isRequired(key string) bool {
	for _, c := range required {
		if c == key {
			return true
		}
	}
	return false
}
