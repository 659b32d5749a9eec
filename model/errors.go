package model

import "fmt"

// ContractError reports a structural mismatch between a model definition
// and the supplied transition function, parameter set, or state set.
// It is always raised at construction time and is fatal.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return "model: contract violation: " + e.Msg
}

func contractErrorf(format string, args ...any) *ContractError {
	return &ContractError{Msg: fmt.Sprintf(format, args...)}
}

// DimensionError reports an array whose shape or length does not match
// the declared stratification. Raised at construction time, fatal.
type DimensionError struct {
	Name string
	Msg  string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("model: dimension mismatch for %q: %s", e.Name, e.Msg)
}

func dimensionErrorf(name, format string, args ...any) *DimensionError {
	return &DimensionError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// ConsistencyError reports a model-specific invariant violated inside a
// transition function mid-integration (e.g. variant fractions that do
// not sum to one). It aborts the current simulation.
type ConsistencyError struct {
	Time float64
	Msg  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("model: consistency violation at t=%.4f: %s", e.Time, e.Msg)
}

// Consistencyf builds a ConsistencyError for use inside transition
// functions.
func Consistencyf(t float64, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Time: t, Msg: fmt.Sprintf(format, args...)}
}
