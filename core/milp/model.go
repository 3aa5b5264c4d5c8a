package milp

import (
	"errors"
	"fmt"
	"math"
)

// Var is a handle to a variable owned by a Model.
type Var struct {
	index int
}

// Index returns the column position of the variable in its model.
func (v Var) Index() int { return v.index }

// Variable describes a decision variable. Bounds must be finite.
type Variable struct {
	Name    string
	Lower   float64
	Upper   float64
	Integer bool
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression: the sum of its terms.
type Expr []Term

// Sum returns the expression adding every variable with coefficient one.
func Sum(vars ...Var) Expr {
	e := make(Expr, len(vars))
	for i, v := range vars {
		e[i] = Term{Var: v, Coef: 1}
	}
	return e
}

// Plus returns a new expression holding the terms of e followed by o.
func (e Expr) Plus(o Expr) Expr {
	out := make(Expr, 0, len(e)+len(o))
	out = append(out, e...)
	return append(out, o...)
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// ObjectiveSense selects minimization or maximization.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Constraint is a named linear relation Expr Sense RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// ErrDuplicateName is returned when a variable or constraint name is reused.
var ErrDuplicateName = errors.New("duplicate name")

// Model is a mixed-integer linear program under construction. A Model is not
// safe for concurrent use and should be solved by a single caller.
type Model struct {
	name        string
	vars        []Variable
	cons        []Constraint
	sense       ObjectiveSense
	objective   Expr
	varNames    map[string]struct{}
	constraints map[string]struct{}
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:        name,
		varNames:    make(map[string]struct{}),
		constraints: make(map[string]struct{}),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// AddVariable declares a variable with the given bounds.
func (m *Model) AddVariable(name string, lower, upper float64, integer bool) (Var, error) {
	if _, ok := m.varNames[name]; ok {
		return Var{}, fmt.Errorf("variable %s: %w", name, ErrDuplicateName)
	}
	if math.IsInf(lower, 0) || math.IsInf(upper, 0) || math.IsNaN(lower) || math.IsNaN(upper) {
		return Var{}, fmt.Errorf("variable %s: bounds must be finite", name)
	}
	if lower > upper {
		return Var{}, fmt.Errorf("variable %s: lower bound %v above upper bound %v", name, lower, upper)
	}
	m.varNames[name] = struct{}{}
	m.vars = append(m.vars, Variable{Name: name, Lower: lower, Upper: upper, Integer: integer})
	return Var{index: len(m.vars) - 1}, nil
}

// AddBinary declares an integer variable bounded to [0,1].
func (m *Model) AddBinary(name string) (Var, error) {
	return m.AddVariable(name, 0, 1, true)
}

// AddConstraint appends a named constraint. Names must be unique so that
// infeasibility diagnostics can point at a single row.
func (m *Model) AddConstraint(name string, e Expr, s Sense, rhs float64) error {
	if name == "" {
		return errors.New("constraint name required")
	}
	if _, ok := m.constraints[name]; ok {
		return fmt.Errorf("constraint %s: %w", name, ErrDuplicateName)
	}
	if err := m.checkExpr(e); err != nil {
		return fmt.Errorf("constraint %s: %w", name, err)
	}
	m.constraints[name] = struct{}{}
	m.cons = append(m.cons, Constraint{Name: name, Expr: e, Sense: s, RHS: rhs})
	return nil
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(s ObjectiveSense, e Expr) error {
	if err := m.checkExpr(e); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	m.sense = s
	m.objective = e
	return nil
}

func (m *Model) checkExpr(e Expr) error {
	for _, t := range e {
		if t.Var.index < 0 || t.Var.index >= len(m.vars) {
			return fmt.Errorf("unknown variable index %d", t.Var.index)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("coefficient for %s is not finite", m.vars[t.Var.index].Name)
		}
	}
	return nil
}

// NumVariables returns the number of declared variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// Variable returns the definition of v.
func (m *Model) Variable(v Var) Variable { return m.vars[v.index] }

// Constraints returns a copy of the constraint list.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, len(m.cons))
	copy(out, m.cons)
	return out
}

// Constraint looks up a constraint by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	for _, c := range m.cons {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Objective returns the objective sense and expression.
func (m *Model) Objective() (ObjectiveSense, Expr) { return m.sense, m.objective }

// Evaluate computes e at the given column values.
func Evaluate(e Expr, values []float64) float64 {
	var s float64
	for _, t := range e {
		s += t.Coef * values[t.Var.index]
	}
	return s
}
