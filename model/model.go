// Package model implements a generic age- and space-stratified
// compartmental simulation engine. A model couples a declarative
// Definition (states, parameters, stratification axes) with a
// transition function; the engine validates the wiring at construction
// time, integrates the dynamics continuously or steps them discretely,
// and assembles labeled outputs, optionally across an ensemble of
// parameter draws.
package model

import (
	"fmt"

	"github.com/epimath/go-epimod/solver"
)

// Options configures optional model behavior at construction time.
type Options struct {
	// TimeDependent maps parameter names to functions that recompute
	// their value at every evaluated time point.
	TimeDependent map[string]TimeFunc

	// Discrete switches the engine to fixed unit-step mode: the
	// transition function returns next-state values instead of
	// derivatives, and negative populations are floored at zero after
	// every step.
	Discrete bool

	// Calendar anchors simulation time to calendar dates.
	Calendar *Calendar
}

// Model is a validated, runnable compartmental model. Construct with
// New; the zero value is not usable.
type Model struct {
	def      Definition
	discrete bool
	calendar *Calendar

	params     Params   // baseline parameter values
	paramOrder []string // positional order incl. time-function auxiliaries
	callNames  []string // paramOrder without auxiliaries
	callIndex  map[string]int
	nCall      int

	stratSizes []int
	stateShape []int
	coords     [][]string

	initial  []StateArray // declared order, validated shapes
	bindings []binding
}

// New validates a model definition against the supplied initial states
// and parameters and returns a runnable model. All structural errors
// (contract and dimension violations) surface here, never during a
// simulation.
func New(def Definition, initial map[string]StateArray, params Params, opts *Options) (*Model, error) {
	if opts == nil {
		opts = &Options{}
	}

	if err := def.validateArgs(); err != nil {
		return nil, err
	}

	expected := def.expectedParams()
	nCall := len(expected)

	// Time-dependent parameters may consume auxiliary parameters that
	// extend the expected set before the final key check.
	tdNames, extra, err := bindTimeFuncs(opts.TimeDependent, expected)
	if err != nil {
		return nil, err
	}
	full := append(append([]string(nil), expected...), extra...)

	if err := checkParamKeys(def.Name, params, full); err != nil {
		return nil, err
	}

	sizes, err := def.axisSizes(params)
	if err != nil {
		return nil, err
	}
	if err := def.checkStratified(params, sizes); err != nil {
		return nil, err
	}

	states, err := def.normalizeInitial(initial, sizes)
	if err != nil {
		return nil, err
	}

	m := &Model{
		def:        def,
		discrete:   opts.Discrete,
		calendar:   opts.Calendar,
		params:     params.Copy(),
		paramOrder: full,
		callNames:  full[:nCall],
		nCall:      nCall,
		stratSizes: sizes,
		initial:    states,
	}
	m.stateShape = sizes
	if len(m.stateShape) == 0 {
		m.stateShape = []int{1}
	}
	m.callIndex = make(map[string]int, nCall)
	for i, n := range m.callNames {
		m.callIndex[n] = i
	}
	m.coords = m.resolveCoords()

	orderIdx := make(map[string]int, len(full))
	for i, n := range full {
		orderIdx[n] = i
	}
	for _, name := range tdNames {
		tf := opts.TimeDependent[name]
		b := binding{
			param:    name,
			paramIdx: orderIdx[name],
			relative: tf.Relative,
			args:     tf.Args,
			fn:       tf.Fn,
		}
		b.argIdx = make([]int, len(tf.Args))
		for k, arg := range tf.Args {
			b.argIdx[k] = orderIdx[arg]
		}
		m.bindings = append(m.bindings, b)
	}

	return m, nil
}

func (m *Model) resolveCoords() [][]string {
	coords := make([][]string, len(m.stratSizes))
	for i, n := range m.stratSizes {
		if len(m.def.Coordinates) > i && m.def.Coordinates[i] != nil {
			if len(m.def.Coordinates[i]) == n {
				coords[i] = m.def.Coordinates[i]
				continue
			}
		}
		labels := make([]string, n)
		for j := range labels {
			labels[j] = fmt.Sprintf("%d", j)
		}
		coords[i] = labels
	}
	return coords
}

// Def returns the model definition.
func (m *Model) Def() Definition { return m.def }

// Discrete reports whether the model steps in discrete unit-time mode.
func (m *Model) Discrete() bool { return m.discrete }

// Calendar returns the model's calendar anchor, or nil.
func (m *Model) Calendar() *Calendar { return m.calendar }

// AxisSizes returns the size of each stratification axis.
func (m *Model) AxisSizes() []int {
	return append([]int(nil), m.stratSizes...)
}

// Parameters returns a deep copy of the baseline parameter values.
func (m *Model) Parameters() Params { return m.params.Copy() }

// SetParam updates one baseline parameter. The name must belong to the
// validated parameter set; axis parameters cannot be replaced because
// that would change the stratification shape.
func (m *Model) SetParam(name string, v Value) error {
	if _, ok := m.params[name]; !ok {
		return contractErrorf("parameter %q is not a parameter of model %q", name, m.def.Name)
	}
	for _, axis := range m.def.Stratification {
		if name == axis {
			if axisLen(v) != axisLen(m.params[name]) {
				return dimensionErrorf(name,
					"replacing a stratification axis must preserve its size %d", axisLen(m.params[name]))
			}
		}
	}
	m.params[name] = copyValue(v)
	return nil
}

// simTime builds the SimTime handed to time-dependent functions.
func (m *Model) simTime(t float64) SimTime {
	st := SimTime{T: t}
	if m.calendar != nil {
		st.Date = m.calendar.TimeOf(t)
		st.OnCalendar = true
	}
	return st
}

// orderedValues resolves the working parameter map into the positional
// value order. Draw functions may add extra keys; those are ignored.
// A missing required key means a draw function removed it, which is a
// contract violation.
func (m *Model) orderedValues(p Params) ([]Value, error) {
	vals := make([]Value, len(m.paramOrder))
	for i, name := range m.paramOrder {
		v, ok := p[name]
		if !ok {
			return nil, contractErrorf(
				"parameter %q disappeared from the working parameter set", name)
		}
		vals[i] = v
	}
	return vals, nil
}

// rhs builds the integrator right-hand side over the flat state vector.
// Each evaluation resolves time-dependent parameters from the run's
// parameter snapshot, expands the flat vector into named state arrays,
// and calls the transition function.
func (m *Model) rhs(vals []Value) solver.Func {
	nStates := len(m.def.States)
	shape := m.stateShape

	return func(t float64, y []float64) ([]float64, error) {
		step := vals
		if len(m.bindings) > 0 {
			step = make([]Value, len(vals))
			copy(step, vals)
			st := m.simTime(t)
			for _, b := range m.bindings {
				aux := make(map[string]Value, len(b.args))
				for k, idx := range b.argIdx {
					aux[b.args[k]] = vals[idx]
				}
				var prev Value
				if b.relative {
					prev = vals[b.paramIdx]
				}
				step[b.paramIdx] = b.fn(st, prev, aux)
			}
		}

		states := expandStates(y, nStates, shape)
		pset := ParamSet{Names: m.callNames, Values: step[:m.nCall], index: m.callIndex}
		out, err := m.def.Transition(t, states, pset)
		if err != nil {
			return nil, err
		}
		if len(out) != nStates {
			return nil, fmt.Errorf(
				"model %q: transition returned %d states, expected %d", m.def.Name, len(out), nStates)
		}
		for i, s := range out {
			if !sameShape(s.Shape, shape) {
				return nil, fmt.Errorf(
					"model %q: transition returned state %q with shape %v, expected %v",
					m.def.Name, m.def.States[i], s.Shape, shape)
			}
		}
		return flattenStates(out), nil
	}
}

// runContinuous integrates the model over the span with an adaptive
// solver, then resamples the dense solution onto the output grid.
func (m *Model) runContinuous(grid []float64, vals []Value, method *solver.Method, opts *solver.Options) ([][]float64, error) {
	if method == nil {
		method = solver.Tsit5()
	}
	if opts == nil {
		opts = solver.EpidemicOptions()
	}

	y0 := flattenStates(m.initial)
	tspan := [2]float64{grid[0], grid[len(grid)-1]}
	sol, err := solver.Solve(m.rhs(vals), tspan, y0, method, opts)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.def.Name, err)
	}
	return solver.SampleAt(sol, grid), nil
}

// runDiscrete iterates the transition as a unit-step map: the
// transition's return is the next state, with negative populations
// floored at zero after every step.
func (m *Model) runDiscrete(grid []float64, vals []Value) ([][]float64, error) {
	f := m.rhs(vals)
	y := flattenStates(m.initial)
	out := make([][]float64, 0, len(grid))
	out = append(out, append([]float64(nil), y...))

	for i := 1; i < len(grid); i++ {
		next, err := f(grid[i-1], y)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.def.Name, err)
		}
		for j, v := range next {
			if v < 0 {
				next[j] = 0
			}
		}
		y = next
		out = append(out, append([]float64(nil), y...))
	}
	return out, nil
}
