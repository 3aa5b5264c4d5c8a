package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// errNodeInfeasible reports a node whose relaxation has no feasible point.
	errNodeInfeasible = errors.New("node relaxation infeasible")
	// errIterationLimit is returned when a node solve does not converge.
	errIterationLimit = errors.New("dual simplex iteration limit reached")
)

const (
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
	// ratioTie is the distance under which two ratios are considered equal.
	ratioTie = 1e-12
	// blandAfter switches to Bland's rule after this many degenerate pivots.
	blandAfter = 30
	// refactorEvery rebuilds the tableau from the original rows after this
	// many pivots to bound the accumulated rounding error.
	refactorEvery = 200
)

// iterationLimit caps the pivots of one node solve.
var iterationLimit = func(rows, cols int) int { return 50*(rows+cols) + 1000 }

// tableau holds the standard form [A | I] x = b of the root problem and a
// basis that stays dual feasible across the whole search. Its columns are the
// variables left free by root propagation followed by one slack per row.
// Variables fixed at the root are folded into b, and rows without a free
// variable are dropped. A node only changes the bounds of the structural
// columns, so it is solved by a bounded dual simplex warm started from the
// basis of the previous node.
type tableau struct {
	tol  float64
	m, n int
	nf   int
	free []int

	a0 *mat.Dense
	b0 []float64
	// t and rhs are B^-1 [A | I] and B^-1 b for the current basis.
	t   *mat.Dense
	rhs []float64

	cost   []float64
	lo, hi []float64
	head   []int
	basic  []int
	upper  []bool

	pivots        int
	sinceRefactor int

	d, x, beta, col []float64
}

// rowFeasible reports whether a row without free variables holds: rhs is the
// right-hand side left after moving every fixed term across.
func rowFeasible(sense Sense, rhs, slack float64) bool {
	switch sense {
	case LessEq:
		return rhs >= -slack
	case GreaterEq:
		return rhs <= slack
	default:
		return math.Abs(rhs) <= slack
	}
}

// newTableau builds the standard form of p under the root bounds lo and hi.
// It returns false when a row without free variables is violated.
func newTableau(p *problem, lo, hi []float64, tol float64) (*tableau, bool) {
	col := make([]int, p.n)
	var free []int
	for j := range col {
		col[j] = -1
		if hi[j]-lo[j] > 0 {
			col[j] = len(free)
			free = append(free, j)
		}
	}
	nf := len(free)

	var rows [][]float64
	var rhs []float64
	var senses []Sense
	for _, c := range p.cons {
		row := make([]float64, nf)
		b := c.RHS
		empty := true
		for _, t := range c.Expr {
			j := t.Var.index
			if col[j] >= 0 {
				row[col[j]] += t.Coef
				empty = false
			} else {
				b -= t.Coef * lo[j]
			}
		}
		if empty {
			if !rowFeasible(c.Sense, b, tol*math.Max(1, math.Abs(c.RHS))) {
				return nil, false
			}
			continue
		}
		rows = append(rows, row)
		rhs = append(rhs, b)
		senses = append(senses, c.Sense)
	}

	m := len(rows)
	n := nf + m
	tb := &tableau{
		tol:   tol,
		m:     m,
		n:     n,
		nf:    nf,
		free:  free,
		b0:    append([]float64(nil), rhs...),
		rhs:   rhs,
		cost:  make([]float64, n),
		lo:    make([]float64, n),
		hi:    make([]float64, n),
		head:  make([]int, m),
		basic: make([]int, n),
		upper: make([]bool, n),
		d:     make([]float64, n),
		x:     make([]float64, n),
		beta:  make([]float64, m),
		col:   make([]float64, m),
	}
	if m > 0 {
		tb.a0 = mat.NewDense(m, n, nil)
		for i, row := range rows {
			for k, a := range row {
				if a != 0 {
					tb.a0.Set(i, k, a)
				}
			}
			tb.a0.Set(i, nf+i, 1)
		}
		tb.t = mat.DenseCopyOf(tb.a0)
	}
	for k, j := range free {
		tb.cost[k] = p.cost[j]
		tb.lo[k], tb.hi[k] = lo[j], hi[j]
		tb.basic[k] = -1
		// Nonbasic structurals start at the bound their cost prefers, which
		// makes the slack basis dual feasible.
		tb.upper[k] = p.cost[j] < 0
	}
	for i, s := range senses {
		k := nf + i
		switch s {
		case LessEq:
			tb.lo[k], tb.hi[k] = 0, math.Inf(1)
		case GreaterEq:
			tb.lo[k], tb.hi[k] = math.Inf(-1), 0
			tb.upper[k] = true
		}
		tb.head[i] = k
		tb.basic[k] = i
	}
	return tb, true
}

// relax solves the node restricted to lo and hi, which must already be
// propagated and lie within the root bounds.
func (tb *tableau) relax(p *problem, lo, hi []float64) (relaxation, error) {
	for k, j := range tb.free {
		tb.lo[k], tb.hi[k] = lo[j], hi[j]
	}
	err := tb.solve()
	switch {
	case errors.Is(err, errNodeInfeasible):
		return relaxation{status: StatusInfeasible}, nil
	case err != nil:
		// Start the next node from a freshly factored basis.
		tb.sinceRefactor = refactorEvery
		return relaxation{}, err
	}
	x := append([]float64(nil), lo...)
	for k, j := range tb.free {
		x[j] = math.Min(math.Max(tb.x[k], lo[j]), hi[j])
	}
	return relaxation{status: StatusOptimal, x: x, obj: p.evaluate(x)}, nil
}

// reduced fills d with the reduced costs of the current basis.
func (tb *tableau) reduced() {
	copy(tb.d, tb.cost)
	for i, h := range tb.head {
		if cb := tb.cost[h]; cb != 0 {
			floats.AddScaled(tb.d, -cb, tb.t.RawRowView(i))
		}
	}
	for _, h := range tb.head {
		tb.d[h] = 0
	}
}

// solve runs the bounded dual simplex from the current basis. On success
// tb.x holds the optimal point.
//
//gocyclo:ignore
func (tb *tableau) solve() error {
	if tb.sinceRefactor >= refactorEvery {
		if err := tb.refactor(); err != nil {
			return err
		}
	}
	tol := tb.tol
	tb.reduced()
	// A column fixed when it left the basis may have been relaxed since;
	// put it back on the bound its reduced cost prefers.
	for k := 0; k < tb.n; k++ {
		if tb.basic[k] >= 0 {
			continue
		}
		if !math.IsInf(tb.lo[k], 0) && !math.IsInf(tb.hi[k], 0) {
			switch {
			case tb.d[k] < -tol:
				tb.upper[k] = true
			case tb.d[k] > tol:
				tb.upper[k] = false
			}
		}
		if tb.upper[k] {
			tb.x[k] = tb.hi[k]
		} else {
			tb.x[k] = tb.lo[k]
		}
	}
	for i := 0; i < tb.m; i++ {
		v := tb.rhs[i]
		for k, a := range tb.t.RawRowView(i) {
			if a != 0 && tb.basic[k] < 0 {
				v -= a * tb.x[k]
			}
		}
		tb.beta[i] = v
	}

	limit := iterationLimit(tb.m, tb.n)
	degenerate := 0
	for it := 0; ; it++ {
		if it >= limit {
			return fmt.Errorf("%w after %d pivots", errIterationLimit, it)
		}
		bland := degenerate >= blandAfter

		r, worst := -1, 0.0
		for i, h := range tb.head {
			v := tb.beta[i]
			var viol float64
			switch {
			case v < tb.lo[h]-tol*(1+math.Abs(tb.lo[h])):
				viol = tb.lo[h] - v
			case v > tb.hi[h]+tol*(1+math.Abs(tb.hi[h])):
				viol = v - tb.hi[h]
			default:
				continue
			}
			if bland {
				if r < 0 || h < tb.head[r] {
					r = i
				}
			} else if viol > worst {
				r, worst = i, viol
			}
		}
		if r < 0 {
			for i, h := range tb.head {
				tb.x[h] = tb.beta[i]
			}
			return nil
		}

		h := tb.head[r]
		inc := tb.beta[r] < tb.lo[h]
		target := tb.hi[h]
		if inc {
			target = tb.lo[h]
		}
		q, ratio, alpha := tb.entering(tb.t.RawRowView(r), inc, bland)
		if q < 0 {
			return errNodeInfeasible
		}
		if ratio <= ratioTie {
			degenerate++
		} else {
			degenerate = 0
		}

		for i := range tb.col {
			tb.col[i] = tb.t.At(i, q)
		}
		delta := (tb.beta[r] - target) / alpha
		for i, a := range tb.col {
			if a != 0 {
				tb.beta[i] -= a * delta
			}
		}
		tb.beta[r] = tb.x[q] + delta
		tb.x[h] = target
		tb.upper[h] = (target == tb.hi[h] && tb.lo[h] != tb.hi[h]) || math.IsInf(tb.lo[h], -1)
		tb.pivot(r, q)
	}
}

// entering picks the nonbasic column that enters on row, which must move its
// basic variable up when inc is set and down otherwise. It returns -1 when no
// column can do so, which proves the node infeasible.
func (tb *tableau) entering(row []float64, inc, bland bool) (q int, ratio, alpha float64) {
	q, ratio = -1, math.Inf(1)
	for k, a := range row {
		if tb.basic[k] >= 0 || math.Abs(a) <= pivotTol || tb.hi[k]-tb.lo[k] <= 0 {
			continue
		}
		up := tb.upper[k]
		if inc != ((!up && a < 0) || (up && a > 0)) {
			continue
		}
		dk := math.Max(tb.d[k], 0)
		if up {
			dk = math.Max(-tb.d[k], 0)
		}
		rk := dk / math.Abs(a)
		better := rk < ratio-ratioTie
		if !better && math.Abs(rk-ratio) <= ratioTie {
			if bland {
				better = k < q
			} else {
				better = math.Abs(a) > math.Abs(alpha)
			}
		}
		if better {
			q, ratio, alpha = k, rk, a
		}
	}
	return q, ratio, alpha
}

// pivot makes column q basic in row r.
func (tb *tableau) pivot(r, q int) {
	rowR := tb.t.RawRowView(r)
	alpha := rowR[q]
	floats.Scale(1/alpha, rowR)
	rowR[q] = 1
	tb.rhs[r] /= alpha
	for i := 0; i < tb.m; i++ {
		f := tb.col[i]
		if i == r || f == 0 {
			continue
		}
		rowI := tb.t.RawRowView(i)
		floats.AddScaled(rowI, -f, rowR)
		rowI[q] = 0
		tb.rhs[i] -= f * tb.rhs[r]
	}
	if dq := tb.d[q]; dq != 0 {
		floats.AddScaled(tb.d, -dq, rowR)
	}
	tb.d[q] = 0

	h := tb.head[r]
	tb.basic[h] = -1
	tb.basic[q] = r
	tb.head[r] = q
	tb.pivots++
	tb.sinceRefactor++
}

// refactor recomputes t and rhs from the original rows and the current basis.
func (tb *tableau) refactor() error {
	tb.sinceRefactor = 0
	if tb.m == 0 {
		return nil
	}
	basis := mat.NewDense(tb.m, tb.m, nil)
	for i, h := range tb.head {
		for r := 0; r < tb.m; r++ {
			basis.Set(r, i, tb.a0.At(r, h))
		}
	}
	var lu mat.LU
	lu.Factorize(basis)
	if err := lu.SolveTo(tb.t, false, tb.a0); err != nil {
		return fmt.Errorf("refactor basis: %w", err)
	}
	b := mat.NewVecDense(tb.m, nil)
	if err := lu.SolveVecTo(b, false, mat.NewVecDense(tb.m, append([]float64(nil), tb.b0...))); err != nil {
		return fmt.Errorf("refactor basis: %w", err)
	}
	copy(tb.rhs, b.RawVector().Data)
	return nil
}
