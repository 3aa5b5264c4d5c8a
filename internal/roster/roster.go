// Package roster resolves user supplied player references against a player
// table.
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kilianp07/squadopt/core/model"
)

var (
	ErrNotFound  = errors.New("player not found")
	ErrAmbiguous = errors.New("ambiguous player reference")
)

// similarityThreshold is the minimum Levenshtein similarity accepted for a
// typo match.
const similarityThreshold = 0.7

// Resolve finds the player referenced by query. It tries, in order, an exact
// ID, an exact name ignoring case, a unique in-order character match with
// accents folded, and finally the closest name by edit distance. A reference
// matching several players is an error rather than a guess.
func Resolve(players []model.Player, query string) (model.Player, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.Player{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	for _, p := range players {
		if p.ID == q {
			return p, nil
		}
	}

	var exact []int
	for i, p := range players {
		if strings.EqualFold(p.Name, q) {
			exact = append(exact, i)
		}
	}
	if p, err := single(players, q, exact); p != nil || err != nil {
		return deref(p), err
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	var matched []int
	for _, r := range fuzzy.RankFindNormalizedFold(q, names) {
		matched = append(matched, r.OriginalIndex)
	}
	if p, err := single(players, q, matched); p != nil || err != nil {
		return deref(p), err
	}

	best, bestSim := -1, similarityThreshold
	tie := false
	for i, p := range players {
		sim := similarity(q, p.Name)
		switch {
		case sim > bestSim:
			best, bestSim, tie = i, sim, false
		case sim == bestSim && best >= 0:
			tie = true
		}
	}
	if best < 0 {
		return model.Player{}, fmt.Errorf("%w: %q", ErrNotFound, q)
	}
	if tie {
		return model.Player{}, fmt.Errorf("%w: %q has several equally close names", ErrAmbiguous, q)
	}
	return players[best], nil
}

// ResolveIDs resolves every query and returns the player IDs in query order.
func ResolveIDs(players []model.Player, queries []string) ([]string, error) {
	ids := make([]string, 0, len(queries))
	for _, q := range queries {
		p, err := Resolve(players, q)
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func single(players []model.Player, q string, idx []int) (*model.Player, error) {
	switch len(idx) {
	case 0:
		return nil, nil
	case 1:
		return &players[idx[0]], nil
	}
	desc := make([]string, len(idx))
	for i, j := range idx {
		desc[i] = fmt.Sprintf("%s (%s, %s)", players[j].Name, players[j].ID, players[j].Team)
	}
	return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, q, strings.Join(desc, ", "))
}

func deref(p *model.Player) model.Player {
	if p == nil {
		return model.Player{}
	}
	return *p
}

// similarity compares q with the full name and with each word of it, so a
// misspelt surname still scores high.
func similarity(q, name string) float64 {
	q = strings.ToLower(q)
	best := 0.0
	for _, cand := range append([]string{name}, strings.Fields(name)...) {
		cand = strings.ToLower(cand)
		maxLen := float64(max(len(q), len(cand)))
		if maxLen == 0 {
			continue
		}
		if s := 1 - float64(fuzzy.LevenshteinDistance(q, cand))/maxLen; s > best {
			best = s
		}
	}
	return best
}
