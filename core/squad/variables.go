package squad

import (
	"fmt"
	"strings"

	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/core/model"
)

// selectThreshold separates 0 from 1 in solver output, tolerating floating
// point noise around the binary values.
const selectThreshold = 0.5

// Selection is the decision variable for one player in one role together with
// the player attributes needed to build constraints and display results.
type Selection struct {
	Var    milp.Var
	Role   model.Role
	Row    int
	Player model.Player
	// Score is the player's value under the configured criterion.
	Score float64
	// Value is the resolved variable value, set after solving.
	Value float64
}

// Selected reports whether the solver put the player in this role.
func (s Selection) Selected() bool { return s.Value > selectThreshold }

// BuildVariables adds one binary variable per player for role and returns the
// selection records in table order.
func BuildVariables(m *milp.Model, players []model.Player, role model.Role, criterion string) ([]Selection, error) {
	prefix := strings.ToLower(role.String())
	out := make([]Selection, 0, len(players))
	for row, p := range players {
		score, ok := p.Score(criterion)
		if !ok {
			return nil, fmt.Errorf("%w: player %s has no %q value", ErrInvalidInput, p.ID, criterion)
		}
		v, err := m.AddBinary(fmt.Sprintf("%s_%d", prefix, row))
		if err != nil {
			return nil, err
		}
		out = append(out, Selection{Var: v, Role: role, Row: row, Player: p, Score: score})
	}
	return out, nil
}
