package model

import (
	"fmt"
	"time"

	"github.com/epimath/go-epimod/solver"
)

// TimeSpan is the simulated interval in days. Output is produced on
// every integer day from Start to End inclusive.
type TimeSpan struct {
	Start float64
	End   float64
}

// Until returns the span from day zero to end.
func Until(end float64) TimeSpan { return TimeSpan{End: end} }

// Span returns an explicit start/end span.
func Span(start, end float64) TimeSpan { return TimeSpan{Start: start, End: end} }

// SpanToDate resolves a span from day zero to the given calendar date.
// The model must carry a calendar; the warmup offset is included, so
// the simulation starts Warmup days before the calendar's StartDate.
func (m *Model) SpanToDate(end string) (TimeSpan, error) {
	if m.calendar == nil {
		return TimeSpan{}, contractErrorf(
			"model %q has no calendar; date spans need a start date", m.def.Name)
	}
	d, err := time.Parse(DateLayout, end)
	if err != nil {
		return TimeSpan{}, fmt.Errorf("model %q: parsing end date: %w", m.def.Name, err)
	}
	off := m.calendar.DayOffset(d)
	if off <= 0 {
		return TimeSpan{}, contractErrorf(
			"end date %s is not after the simulation start", end)
	}
	return TimeSpan{End: float64(off)}, nil
}

// Samples holds posterior parameter samples keyed by parameter name,
// as produced by calibration. Draw functions index into the sample
// chains to perturb the working parameters.
type Samples map[string][]float64

// DrawFunc perturbs the working parameter set for one ensemble member.
// It receives the current working parameters and the sample chains and
// returns the parameters for the next run; it may mutate and return its
// argument. The baseline is restored after the ensemble completes, so a
// draw function can never corrupt the model.
type DrawFunc func(params Params, samples Samples) Params

// SimOptions configures a simulation run.
type SimOptions struct {
	// Draws is the ensemble size. Zero means a single deterministic
	// run without a draws dimension in the output.
	Draws int

	// Draw perturbs the working parameters before each ensemble
	// member. Ignored when Draws is zero.
	Draw DrawFunc

	// Samples is passed through to the draw function.
	Samples Samples

	// Method selects the Runge-Kutta method for continuous models.
	// Nil means Tsit5.
	Method *solver.Method

	// Solver overrides the integration options for continuous models.
	// Nil means the epidemic preset.
	Solver *solver.Options
}

// grid returns the integer-day output grid over the span.
func (ts TimeSpan) grid() ([]float64, error) {
	if ts.End <= ts.Start {
		return nil, contractErrorf("time span end %g is not after start %g", ts.End, ts.Start)
	}
	n := int(ts.End-ts.Start) + 1
	g := make([]float64, n)
	for i := range g {
		g[i] = ts.Start + float64(i)
	}
	// A fractional end extends the grid by the final partial day.
	if g[n-1] < ts.End {
		g = append(g, ts.End)
	}
	return g, nil
}

// Simulate runs the model over the span and returns labeled output.
// With opts.Draws > 0 it runs an ensemble: before each member the draw
// function perturbs a working copy of the parameters, and the per-draw
// results are concatenated along a trailing draws dimension. The
// baseline parameters are restored afterwards regardless of what the
// draw function did.
func (m *Model) Simulate(span TimeSpan, opts *SimOptions) (*Output, error) {
	if opts == nil {
		opts = &SimOptions{}
	}
	if opts.Draws < 0 {
		return nil, contractErrorf("draw count %d is negative", opts.Draws)
	}

	grid, err := span.grid()
	if err != nil {
		return nil, err
	}

	runs := opts.Draws
	if runs == 0 {
		runs = 1
	}

	baseline := m.params.Copy()
	working := m.params
	defer func() { m.params = baseline }()

	var ensemble *Output
	for i := 0; i < runs; i++ {
		if opts.Draws > 0 && opts.Draw != nil {
			working = opts.Draw(working, opts.Samples)
		}

		vals, err := m.orderedValues(working)
		if err != nil {
			return nil, err
		}

		var cols [][]float64
		if m.discrete {
			cols, err = m.runDiscrete(grid, vals)
		} else {
			cols, err = m.runContinuous(grid, vals, opts.Method, opts.Solver)
		}
		if err != nil {
			return nil, err
		}

		run := m.assembleOutput(grid, cols)
		if ensemble == nil {
			ensemble = run
			ensemble.Draws = 1
		} else {
			ensemble.appendDraw(run)
		}
	}

	ensemble.Params = working.Copy()
	if opts.Draws > 0 {
		ensemble.finishDraws()
	} else {
		ensemble.Draws = 0
	}
	return ensemble, nil
}
