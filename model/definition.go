package model

import (
	"sort"
	"strings"
)

// TransitionFunc computes the model dynamics. For continuous models it
// returns the time derivative of every state; for discrete models it
// returns the next value of every state. States arrive in declared
// order with the model's stratification shape; params carries the
// validated positional parameter values for this evaluation.
type TransitionFunc func(t float64, states []StateArray, params ParamSet) ([]StateArray, error)

// Definition declares the structure of a compartmental model: its
// states, parameters, stratification axes, and the transition function
// that ties them together.
//
// Args lists the transition function's logical argument names in call
// order: "t" first, then every state in States order, then every
// parameter in Parameters order, then the stratified parameter names
// group by group, then the stratification axis names. Construction
// validates Args against the declared names so a wiring mistake is
// caught before the first step runs.
type Definition struct {
	Name       string
	States     []string
	Parameters []string

	// StratifiedParameters groups per-axis vector parameters: group i
	// holds the parameters stratified over Stratification[i]. Models
	// without stratified parameters leave this nil.
	StratifiedParameters [][]string

	// Stratification names the axis parameters. Each must be supplied
	// as a vector or matrix whose leading dimension sets the axis size
	// (e.g. a contact matrix between age groups).
	Stratification []string

	// Coordinates optionally labels the strata of each axis, index-
	// aligned with Stratification. Unlabeled axes get numeric labels.
	Coordinates [][]string

	Args       []string
	Transition TransitionFunc
}

func (d *Definition) stratifiedFlat() []string {
	var flat []string
	for _, group := range d.StratifiedParameters {
		flat = append(flat, group...)
	}
	return flat
}

// validateArgs checks the declared argument order against the declared
// names: time, states, parameters, stratified parameters, axes.
func (d *Definition) validateArgs() error {
	if d.Transition == nil {
		return contractErrorf("model %q has no transition function", d.Name)
	}
	if len(d.Args) == 0 || d.Args[0] != "t" {
		return contractErrorf(
			"the first argument of the transition function should always be 't'")
	}

	want := make([]string, 0, 1+len(d.States)+len(d.Parameters))
	want = append(want, "t")
	want = append(want, d.States...)
	want = append(want, d.Parameters...)
	want = append(want, d.stratifiedFlat()...)
	want = append(want, d.Stratification...)

	if len(d.Args) != len(want) {
		return contractErrorf(
			"transition function of model %q takes %d arguments, the declaration implies %d: %v",
			d.Name, len(d.Args), len(want), want)
	}
	for i, name := range want {
		if d.Args[i] != name {
			return contractErrorf(
				"argument %d of the transition function should be %q, found %q; expected order: time, states (in declared order), parameters, stratified parameters, stratification axes",
				i, name, d.Args[i])
		}
	}

	if len(d.StratifiedParameters) > 0 && len(d.StratifiedParameters) != len(d.Stratification) {
		return contractErrorf(
			"model %q declares %d stratified parameter groups for %d stratification axes",
			d.Name, len(d.StratifiedParameters), len(d.Stratification))
	}
	if len(d.Coordinates) > 0 && len(d.Coordinates) != len(d.Stratification) {
		return contractErrorf(
			"model %q declares coordinates for %d axes but has %d stratification axes",
			d.Name, len(d.Coordinates), len(d.Stratification))
	}
	return nil
}

// expectedParams returns the positional parameter order the transition
// function consumes, excluding any time-function auxiliaries.
func (d *Definition) expectedParams() []string {
	out := make([]string, 0, len(d.Parameters)+len(d.Stratification))
	out = append(out, d.Parameters...)
	out = append(out, d.stratifiedFlat()...)
	out = append(out, d.Stratification...)
	return out
}

// checkParamKeys verifies the supplied parameter mapping covers exactly
// the expected names, reporting both directions of the mismatch.
func checkParamKeys(modelName string, supplied Params, expected []string) error {
	expectedSet := make(map[string]bool, len(expected))
	for _, n := range expected {
		expectedSet[n] = true
	}

	var missing []string
	for _, n := range expected {
		if _, ok := supplied[n]; !ok {
			missing = append(missing, n)
		}
	}
	var redundant []string
	for n := range supplied {
		if !expectedSet[n] {
			redundant = append(redundant, n)
		}
	}
	sort.Strings(redundant)

	if len(missing) > 0 || len(redundant) > 0 {
		var b strings.Builder
		b.WriteString("specified parameters for model ")
		b.WriteString(modelName)
		b.WriteString(" do not match the required set")
		if len(missing) > 0 {
			b.WriteString("; missing: ")
			b.WriteString(strings.Join(missing, ", "))
		}
		if len(redundant) > 0 {
			b.WriteString("; redundant: ")
			b.WriteString(strings.Join(redundant, ", "))
		}
		return contractErrorf("%s", b.String())
	}
	return nil
}

// axisSizes resolves each stratification axis to its size from the
// leading dimension of the axis parameter's value.
func (d *Definition) axisSizes(params Params) ([]int, error) {
	sizes := make([]int, len(d.Stratification))
	for i, axis := range d.Stratification {
		v, ok := params[axis]
		if !ok {
			return nil, contractErrorf(
				"stratification axis %q of model %q was not supplied as a parameter", axis, d.Name)
		}
		n := axisLen(v)
		if n < 1 {
			return nil, dimensionErrorf(axis,
				"stratification axis must be a vector or matrix with at least one stratum")
		}
		sizes[i] = n
	}
	return sizes, nil
}

// checkStratified verifies every stratified parameter is a vector of
// its axis length.
func (d *Definition) checkStratified(params Params, sizes []int) error {
	for gi, group := range d.StratifiedParameters {
		for _, name := range group {
			v := params[name]
			vec, ok := v.(Vector)
			if !ok {
				return dimensionErrorf(name,
					"stratified parameters should be 1D vectors")
			}
			if len(vec) != sizes[gi] {
				return dimensionErrorf(name,
					"length %d does not match axis %q size %d",
					len(vec), d.Stratification[gi], sizes[gi])
			}
		}
	}
	return nil
}

// normalizeInitial validates initial state shapes against the
// stratification, auto-filling absent states with zeros and rejecting
// unknown names. Returns the states in declared order.
func (d *Definition) normalizeInitial(initial map[string]StateArray, sizes []int) ([]StateArray, error) {
	declared := make(map[string]bool, len(d.States))
	for _, s := range d.States {
		declared[s] = true
	}
	for name := range initial {
		if !declared[name] {
			return nil, contractErrorf(
				"initial state %q is not a state of model %q", name, d.Name)
		}
	}

	shape := sizes
	if len(shape) == 0 {
		shape = []int{1}
	}

	out := make([]StateArray, len(d.States))
	for i, name := range d.States {
		arr, ok := initial[name]
		if !ok {
			out[i] = Zeros(shape)
			continue
		}
		if !sameShape(arr.Shape, shape) {
			return nil, dimensionErrorf(name,
				"initial state has shape %v, stratification implies %v", arr.Shape, shape)
		}
		out[i] = arr.Clone()
	}
	return out, nil
}
