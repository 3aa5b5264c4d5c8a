package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// problem is the compiled, solver-facing form of a Model.
type problem struct {
	n       int
	lower   []float64
	upper   []float64
	integer []bool
	cons    []Constraint
	// cost is the objective in minimization form.
	cost []float64
	sign float64
}

// normalize merges repeated variables and drops zero coefficients.
func normalize(e Expr) Expr {
	pos := make(map[int]int, len(e))
	out := make(Expr, 0, len(e))
	for _, t := range e {
		if i, ok := pos[t.Var.index]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var.index] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept
}

func compile(m *Model) *problem {
	p := &problem{
		n:       len(m.vars),
		lower:   make([]float64, len(m.vars)),
		upper:   make([]float64, len(m.vars)),
		integer: make([]bool, len(m.vars)),
		cons:    make([]Constraint, len(m.cons)),
		cost:    make([]float64, len(m.vars)),
		sign:    1,
	}
	for i, v := range m.vars {
		p.lower[i], p.upper[i], p.integer[i] = v.Lower, v.Upper, v.Integer
		if v.Integer {
			p.lower[i] = math.Ceil(v.Lower)
			p.upper[i] = math.Floor(v.Upper)
		}
	}
	for i, c := range m.cons {
		c.Expr = normalize(c.Expr)
		p.cons[i] = c
	}
	if m.sense == Maximize {
		p.sign = -1
	}
	for _, t := range m.objective {
		p.cost[t.Var.index] += p.sign * t.Coef
	}
	return p
}

func (p *problem) evaluate(x []float64) float64 {
	var s float64
	for j, c := range p.cost {
		s += c * x[j]
	}
	return s
}

// relaxation is the LP bound of one branch-and-bound node.
type relaxation struct {
	status Status
	x      []float64
	// obj is the relaxation value in minimization form.
	obj float64
}

// lpSolve points to the LP routine. Tests replace it to simulate failures.
var lpSolve = lp.Simplex

// relax solves the LP relaxation of p restricted to the bounds lo and hi with
// gonum's simplex, building the standard form from scratch. Fixed variables are substituted out and every free variable y = x - lo is
// kept non-negative, which is the standard form expected by lp.Simplex.
//
//gocyclo:ignore
func relax(p *problem, lo, hi []float64, tol float64) (relaxation, error) {
	lo = append([]float64(nil), lo...)
	hi = append([]float64(nil), hi...)
	for j := range lo {
		if lo[j] > hi[j] {
			return relaxation{status: StatusInfeasible}, nil
		}
	}
	if !propagate(p.cons, lo, hi, tol) {
		return relaxation{status: StatusInfeasible}, nil
	}

	col := make([]int, p.n)
	var free []int
	for j := 0; j < p.n; j++ {
		col[j] = -1
		if hi[j]-lo[j] > 0 {
			col[j] = len(free)
			free = append(free, j)
		}
	}
	nf := len(free)

	var eqRows, leRows [][]float64
	var eqRHS, leRHS []float64
	for _, c := range p.cons {
		row := make([]float64, nf)
		rhs := c.RHS
		empty := true
		for _, t := range c.Expr {
			j := t.Var.index
			rhs -= t.Coef * lo[j]
			if col[j] >= 0 {
				row[col[j]] += t.Coef
				empty = false
			}
		}
		if empty {
			if !rowFeasible(c.Sense, rhs, tol*math.Max(1, math.Abs(c.RHS))) {
				return relaxation{status: StatusInfeasible}, nil
			}
			continue
		}
		switch c.Sense {
		case Equal:
			eqRows = append(eqRows, row)
			eqRHS = append(eqRHS, rhs)
		case LessEq:
			leRows = append(leRows, row)
			leRHS = append(leRHS, rhs)
		case GreaterEq:
			for k := range row {
				row[k] = -row[k]
			}
			leRows = append(leRows, row)
			leRHS = append(leRHS, -rhs)
		}
	}

	x := append([]float64(nil), lo...)
	if nf == 0 {
		return relaxation{status: StatusOptimal, x: x, obj: p.evaluate(x)}, nil
	}

	keep, inconsistent := independentRows(eqRows, eqRHS, tol)
	if inconsistent {
		return relaxation{status: StatusInfeasible}, nil
	}

	// A <= row with non-negative coefficients already caps each of its
	// variables; only the remaining upper bounds need explicit rows.
	implied := make([]bool, nf)
	for r, row := range leRows {
		nonneg := true
		for _, a := range row {
			if a < 0 {
				nonneg = false
				break
			}
		}
		if !nonneg {
			continue
		}
		for k, a := range row {
			if a > 0 && leRHS[r]/a <= hi[free[k]]-lo[free[k]]+tol {
				implied[k] = true
			}
		}
	}
	var bounds []int
	for k := range free {
		if !implied[k] {
			bounds = append(bounds, k)
		}
	}

	m := len(keep) + len(leRows) + len(bounds)
	n := nf + len(leRows) + len(bounds)
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	r := 0
	setRow := func(row []float64, rhs float64, slackCol int) {
		sgn := 1.0
		if rhs < 0 {
			sgn = -1
		}
		for k, a := range row {
			if a != 0 {
				A.Set(r, k, sgn*a)
			}
		}
		if slackCol >= 0 {
			A.Set(r, slackCol, sgn)
		}
		b[r] = sgn * rhs
		r++
	}
	for _, i := range keep {
		setRow(eqRows[i], eqRHS[i], -1)
	}
	slackCol := nf
	for i, row := range leRows {
		setRow(row, leRHS[i], slackCol)
		slackCol++
	}
	for _, k := range bounds {
		row := make([]float64, nf)
		row[k] = 1
		setRow(row, hi[free[k]]-lo[free[k]], slackCol)
		slackCol++
	}

	c := make([]float64, n)
	for k, j := range free {
		c[k] = p.cost[j]
	}

	_, y, err := lpSolve(c, A, b, tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return relaxation{status: StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return relaxation{status: StatusUnbounded}, nil
	case err != nil:
		return relaxation{}, fmt.Errorf("%w: %v", ErrLP, err)
	}
	for k, j := range free {
		v := lo[j] + y[k]
		x[j] = math.Min(math.Max(v, lo[j]), hi[j])
	}
	return relaxation{status: StatusOptimal, x: x, obj: p.evaluate(x)}, nil
}
