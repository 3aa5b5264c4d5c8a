package squad

import (
	"fmt"
	"strings"

	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/core/model"
)

// Decisions holds the selection variables of every role.
type Decisions map[model.Role][]Selection

// squadTerms returns, for each player row, the variables of the roles that
// occupy a squad slot.
func (d Decisions) squadTerms() map[int][]milp.Var {
	out := make(map[int][]milp.Var)
	for _, r := range model.Roles {
		if !r.InSquad() {
			continue
		}
		for _, s := range d[r] {
			out[s.Row] = append(out[s.Row], s.Var)
		}
	}
	return out
}

// Assemble sets the objective and adds every constraint of the squad problem
// to m. Each term list is collected in full before it is folded into a
// constraint, so no expression is shared between constraints.
func Assemble(m *milp.Model, d Decisions, players []model.Player, cfg Config) error {
	var objective, cost milp.Expr
	for _, r := range model.Roles {
		for _, s := range d[r] {
			if w := r.Weight(); w != 0 {
				objective = append(objective, milp.Term{Var: s.Var, Coef: w * s.Score})
			}
			if r.InSquad() {
				cost = append(cost, milp.Term{Var: s.Var, Coef: s.Player.Cost})
			}
		}
	}
	if err := m.SetObjective(milp.Maximize, objective); err != nil {
		return err
	}

	add := func(name string, e milp.Expr, s milp.Sense, rhs float64) error {
		if err := m.AddConstraint(name, e, s, rhs); err != nil {
			return fmt.Errorf("assemble: %w", err)
		}
		return nil
	}

	if err := add("budget", cost, milp.LessEq, cfg.Budget); err != nil {
		return err
	}

	totals := map[model.Role]float64{
		model.Starter: model.StarterCount,
		model.Bench:   model.BenchCount,
		model.Captain: model.CaptainCount,
	}
	for _, r := range model.Roles {
		if err := add(strings.ToLower(r.String()), roleVars(d[r], nil), milp.Equal, totals[r]); err != nil {
			return err
		}
	}

	for _, team := range clubs(players) {
		var e milp.Expr
		for _, r := range model.Roles {
			if r.InSquad() {
				e = append(e, roleVars(d[r], func(s Selection) bool { return s.Player.Team == team })...)
			}
		}
		if err := add("club_"+team, e, milp.LessEq, model.MaxPerClub); err != nil {
			return err
		}
	}

	for _, r := range []model.Role{model.Starter, model.Bench} {
		prefix := "starter_"
		if r == model.Bench {
			prefix = "bench_"
		}
		targets := cfg.Formation.Targets(r)
		for _, pos := range model.Positions {
			e := roleVars(d[r], func(s Selection) bool { return s.Player.Position == pos })
			if err := add(prefix+pos.String(), e, milp.Equal, float64(targets[pos])); err != nil {
				return err
			}
		}
	}

	slots := d.squadTerms()
	for row, p := range players {
		if err := add("player_"+p.ID, milp.Sum(slots[row]...), milp.LessEq, 1); err != nil {
			return err
		}
	}

	rows := make(map[string]int, len(players))
	for row, p := range players {
		rows[p.ID] = row
	}
	for _, id := range cfg.Locked {
		if err := add("lock_"+id, milp.Sum(slots[rows[id]]...), milp.Equal, 1); err != nil {
			return err
		}
	}
	for _, id := range cfg.Excluded {
		var e milp.Expr
		for _, r := range model.Roles {
			e = append(e, roleVars(d[r], func(s Selection) bool { return s.Row == rows[id] })...)
		}
		if err := add("exclude_"+id, e, milp.Equal, 0); err != nil {
			return err
		}
	}
	return nil
}

// roleVars returns the unit terms of the selections accepted by keep. A nil
// keep accepts every selection.
func roleVars(sel []Selection, keep func(Selection) bool) milp.Expr {
	var e milp.Expr
	for _, s := range sel {
		if keep == nil || keep(s) {
			e = append(e, milp.Term{Var: s.Var, Coef: 1})
		}
	}
	return e
}

// clubs returns the distinct teams in order of first appearance.
func clubs(players []model.Player) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range players {
		if !seen[p.Team] {
			seen[p.Team] = true
			out = append(out, p.Team)
		}
	}
	return out
}
