package model

import (
	"sort"
	"time"
)

// SimTime is the time value handed to time-dependent parameter
// functions. T is the simulation time in days since day zero. When the
// model carries a Calendar, Date is the corresponding calendar instant
// (fractional within the day for interior solver evaluations) and
// OnCalendar is true.
type SimTime struct {
	T          float64
	Date       time.Time
	OnCalendar bool
}

// DateOnly truncates the calendar instant to the start of its day.
// Fractional times within a day all map to that day; exact integer times
// land exactly on a day boundary.
func (st SimTime) DateOnly() time.Time {
	y, m, d := st.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, st.Date.Location())
}

// Calendar anchors simulation time to calendar dates. Day zero of the
// simulation falls Warmup days before StartDate, so warmup dynamics can
// run before the first observed data point.
type Calendar struct {
	StartDate time.Time
	Warmup    int
}

// DateLayout is the accepted format for date strings.
const DateLayout = "2006-01-02"

// DayOffset converts a calendar date to its integer simulation-day
// offset: exact day subtraction from StartDate plus the warmup count.
func (c Calendar) DayOffset(date time.Time) int {
	return int(date.Sub(c.StartDate).Hours()/24) + c.Warmup
}

// TimeOf converts a simulation time to its calendar instant, the inverse
// of DayOffset for integer times.
func (c Calendar) TimeOf(t float64) time.Time {
	return c.StartDate.Add(time.Duration((t - float64(c.Warmup)) * 24 * float64(time.Hour)))
}

// TimeFunc computes a time-varying parameter value at each evaluated
// time point during integration.
//
// If Relative is true, the function receives the parameter's own value
// from the step's parameter snapshot as prev; otherwise prev is nil.
// Args names the auxiliary parameters the function consumes; their
// current values are passed in aux. Auxiliary names that are not already
// model parameters extend the expected parameter set at validation time.
type TimeFunc struct {
	Relative bool
	Args     []string
	Fn       func(t SimTime, prev Value, aux map[string]Value) Value
}

// Absolute builds a time-dependent parameter function computed purely
// from time and auxiliary parameters.
func Absolute(args []string, fn func(t SimTime, aux map[string]Value) Value) TimeFunc {
	return TimeFunc{
		Args: args,
		Fn: func(t SimTime, _ Value, aux map[string]Value) Value {
			return fn(t, aux)
		},
	}
}

// Relative builds a time-dependent parameter function that also receives
// the parameter's previous value.
func Relative(args []string, fn func(t SimTime, prev Value, aux map[string]Value) Value) TimeFunc {
	return TimeFunc{Relative: true, Args: args, Fn: fn}
}

// binding records, for one time-dependent parameter, where its value
// lives in the positional parameter order and which auxiliary values to
// pass. Computed once at construction, immutable afterwards.
type binding struct {
	param    string
	paramIdx int
	relative bool
	args     []string
	argIdx   []int
	fn       func(t SimTime, prev Value, aux map[string]Value) Value
}

// bindTimeFuncs validates the time-dependent parameter map against the
// known parameter and stratification names and returns the union of
// auxiliary argument names, first seen wins, iterating parameters in
// sorted name order for determinism.
func bindTimeFuncs(funcs map[string]TimeFunc, known []string) ([]string, []string, error) {
	knownSet := make(map[string]bool, len(known))
	for _, n := range known {
		knownSet[n] = true
	}

	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	var extra []string
	seen := make(map[string]bool)
	for _, name := range names {
		if !knownSet[name] {
			return nil, nil, contractErrorf(
				"time-dependent parameter %q is not an existing model parameter", name)
		}
		tf := funcs[name]
		if tf.Fn == nil {
			return nil, nil, contractErrorf("time-dependent parameter %q has no function", name)
		}
		for _, arg := range tf.Args {
			if !seen[arg] {
				seen[arg] = true
				extra = append(extra, arg)
			}
		}
	}
	return names, extra, nil
}

// Step returns a piecewise-constant time function: before switches to
// after at time at. Useful for abrupt policy changes.
func Step(at float64, before, after Value) TimeFunc {
	return TimeFunc{
		Fn: func(t SimTime, _ Value, _ map[string]Value) Value {
			if t.T < at {
				return before
			}
			return after
		},
	}
}

// Ramp interpolates linearly from the old value to the new value,
// starting tau days after t0 and completing over l further days. Before
// the ramp starts the old value holds; after it completes the new value
// holds. Old and new must be scalars or matrices of the same shape.
func Ramp(old, new Value, t float64, tau, l, t0 float64) Value {
	frac := (t - t0 - tau) / l
	if frac <= 0 {
		return old
	}
	if frac >= 1 {
		return new
	}
	switch o := old.(type) {
	case Scalar:
		n := new.(Scalar)
		return Scalar(float64(o) + frac*(float64(n)-float64(o)))
	case Vector:
		n := new.(Vector)
		out := make(Vector, len(o))
		for i := range o {
			out[i] = o[i] + frac*(n[i]-o[i])
		}
		return out
	case Matrix:
		n := new.(Matrix)
		out := make(Matrix, len(o))
		for i := range o {
			row := make([]float64, len(o[i]))
			for j := range o[i] {
				row[j] = o[i][j] + frac*(n[i][j]-o[i][j])
			}
			out[i] = row
		}
		return out
	default:
		return new
	}
}
