package milp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// activity returns the smallest and largest values e can take within bounds.
func activity(e Expr, lo, hi []float64) (minAct, maxAct float64) {
	for _, t := range e {
		j := t.Var.index
		if t.Coef >= 0 {
			minAct += t.Coef * lo[j]
			maxAct += t.Coef * hi[j]
		} else {
			minAct += t.Coef * hi[j]
			maxAct += t.Coef * lo[j]
		}
	}
	return minAct, maxAct
}

// fixAtMin pins every variable of e to the bound that minimizes e.
func fixAtMin(e Expr, lo, hi []float64) bool {
	changed := false
	for _, t := range e {
		j := t.Var.index
		switch {
		case t.Coef > 0 && hi[j] != lo[j]:
			hi[j] = lo[j]
			changed = true
		case t.Coef < 0 && lo[j] != hi[j]:
			lo[j] = hi[j]
			changed = true
		}
	}
	return changed
}

// fixAtMax pins every variable of e to the bound that maximizes e.
func fixAtMax(e Expr, lo, hi []float64) bool {
	changed := false
	for _, t := range e {
		j := t.Var.index
		switch {
		case t.Coef > 0 && lo[j] != hi[j]:
			lo[j] = hi[j]
			changed = true
		case t.Coef < 0 && hi[j] != lo[j]:
			hi[j] = lo[j]
			changed = true
		}
	}
	return changed
}

// propagate tightens lo and hi in place using row activities. A row whose
// minimum activity already meets a <= or = right-hand side forces every
// variable to its minimizing bound, and symmetrically for >= rows. It returns
// false when some row cannot be satisfied within the bounds.
func propagate(cons []Constraint, lo, hi []float64, tol float64) bool {
	const maxPasses = 16
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for _, c := range cons {
			minAct, maxAct := activity(c.Expr, lo, hi)
			scale := tol * math.Max(1, math.Abs(c.RHS))
			if c.Sense != GreaterEq {
				if minAct > c.RHS+scale {
					return false
				}
				if math.Abs(minAct-c.RHS) <= scale && fixAtMin(c.Expr, lo, hi) {
					changed = true
				}
			}
			if c.Sense != LessEq {
				if maxAct < c.RHS-scale {
					return false
				}
				if math.Abs(maxAct-c.RHS) <= scale && fixAtMax(c.Expr, lo, hi) {
					changed = true
				}
			}
		}
		if !changed {
			return true
		}
	}
	return true
}

// independentRows selects a linearly independent subset of the equality rows
// by forward elimination on the augmented rows [a | b]. It reports
// inconsistent=true when a dependent row contradicts the rows kept before it.
func independentRows(rows [][]float64, rhs []float64, tol float64) (keep []int, inconsistent bool) {
	type reduced struct {
		row   []float64
		rhs   float64
		pivot int
	}
	var basis []reduced
	for i, r := range rows {
		cur := make([]float64, len(r))
		copy(cur, r)
		b := rhs[i]
		for _, k := range basis {
			if f := cur[k.pivot]; f != 0 {
				alpha := -f / k.row[k.pivot]
				floats.AddScaled(cur, alpha, k.row)
				b += alpha * k.rhs
				cur[k.pivot] = 0
			}
		}
		norm := floats.Norm(cur, math.Inf(1))
		if norm <= tol*math.Max(1, floats.Norm(r, math.Inf(1))) {
			if math.Abs(b) > tol*math.Max(1, math.Abs(rhs[i])) {
				return nil, true
			}
			continue
		}
		pivot := 0
		for j, v := range cur {
			if math.Abs(v) > math.Abs(cur[pivot]) {
				pivot = j
			}
		}
		basis = append(basis, reduced{row: cur, rhs: b, pivot: pivot})
		keep = append(keep, i)
	}
	return keep, false
}
