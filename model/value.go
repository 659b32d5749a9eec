package model

import "fmt"

// Value is a model parameter value: a scalar, a 1-D vector, or a 2-D
// matrix. Stratified parameters are vectors whose length matches their
// stratification axis; stratification axes themselves are vectors or
// matrices whose leading dimension defines the axis size (e.g. a contact
// matrix between age groups).
type Value interface {
	isValue()
}

// Scalar is a plain float parameter.
type Scalar float64

// Vector is a 1-D array parameter.
type Vector []float64

// Matrix is a 2-D array parameter stored as rows.
type Matrix [][]float64

func (Scalar) isValue() {}
func (Vector) isValue() {}
func (Matrix) isValue() {}

// axisLen returns the leading dimension of a value, used to infer the
// size of a stratification axis from its axis parameter. Scalars have
// no leading dimension and return -1.
func axisLen(v Value) int {
	switch x := v.(type) {
	case Vector:
		return len(x)
	case Matrix:
		return len(x)
	default:
		return -1
	}
}

// copyValue makes a deep copy of a value.
func copyValue(v Value) Value {
	switch x := v.(type) {
	case Scalar:
		return x
	case Vector:
		c := make(Vector, len(x))
		copy(c, x)
		return c
	case Matrix:
		c := make(Matrix, len(x))
		for i, row := range x {
			r := make([]float64, len(row))
			copy(r, row)
			c[i] = r
		}
		return c
	case nil:
		return nil
	default:
		panic(fmt.Sprintf("model: unknown value type %T", v))
	}
}

// Params maps parameter names to values. A model owns exactly one
// baseline Params; simulations work on deep copies so draw functions can
// never corrupt the baseline.
type Params map[string]Value

// Copy returns a deep copy of the parameter mapping.
func (p Params) Copy() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = copyValue(v)
	}
	return c
}

// ParamSet exposes the working parameter values of one integration step
// to a transition function. Values carries the validated positional
// order (parameter names, then flattened stratified names, then
// stratification axes); the named accessors are a convenience over the
// same slice.
type ParamSet struct {
	Names  []string
	Values []Value
	index  map[string]int
}

func newParamSet(names []string, values []Value) ParamSet {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return ParamSet{Names: names, Values: values, index: idx}
}

// Get returns the value for a named parameter, or nil if absent.
func (p ParamSet) Get(name string) Value {
	i, ok := p.index[name]
	if !ok {
		return nil
	}
	return p.Values[i]
}

// Scalar returns a named scalar parameter. It panics on a missing name
// or a non-scalar value; transition functions are validated against the
// declared contract before any step runs, so this indicates a model bug.
func (p ParamSet) Scalar(name string) float64 {
	v, ok := p.Get(name).(Scalar)
	if !ok {
		panic(fmt.Sprintf("model: parameter %q is not a scalar", name))
	}
	return float64(v)
}

// Vector returns a named vector parameter.
func (p ParamSet) Vector(name string) []float64 {
	v, ok := p.Get(name).(Vector)
	if !ok {
		panic(fmt.Sprintf("model: parameter %q is not a vector", name))
	}
	return v
}

// Matrix returns a named matrix parameter.
func (p ParamSet) Matrix(name string) [][]float64 {
	v, ok := p.Get(name).(Matrix)
	if !ok {
		panic(fmt.Sprintf("model: parameter %q is not a matrix", name))
	}
	return v
}
