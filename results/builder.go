package results

import (
	"time"

	"github.com/google/uuid"

	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/solver"
)

// Builder helps construct Results from simulation output.
type Builder struct {
	results Results
}

// NewBuilder creates a new results builder with a fresh run id.
func NewBuilder() *Builder {
	return &Builder{
		results: Results{
			Version: SchemaVersion,
			Metadata: Metadata{
				RunID:     uuid.New().String(),
				Timestamp: time.Now(),
			},
		},
	}
}

// WithOutput fills model info and time series from a simulation output.
func (b *Builder) WithOutput(out *model.Output) *Builder {
	coords := make(map[string][]string, len(out.Axes))
	for axis, labels := range out.Coords {
		coords[axis] = labels
	}
	b.results.Model = ModelInfo{
		Name:        out.ModelName,
		States:      out.States(),
		Axes:        append([]string(nil), out.Axes...),
		AxisSizes:   append([]int(nil), out.AxisSizes...),
		Coordinates: coords,
	}

	nT := len(out.Time)
	b.results.Simulation.Timespan = [2]float64{out.Time[0], out.Time[nT-1]}
	b.results.Simulation.Draws = out.Draws
	if out.Params != nil {
		params := make(map[string]any, len(out.Params))
		for name, v := range out.Params {
			params[name] = paramValue(v)
		}
		b.results.Simulation.Parameters = params
	}

	states := make(map[string][]float64, len(out.StateNames))
	final := make(map[string]float64, len(out.StateNames))
	for _, name := range out.StateNames {
		series, err := out.Total(name, 0)
		if err != nil {
			continue
		}
		states[name] = series
		final[name] = series[nT-1]
	}

	b.results.Series = Data{
		Summary: Summary{
			Points:     nT,
			FinalTime:  out.Time[nT-1],
			FinalState: final,
		},
		Timeseries: Timeseries{
			Time:   append([]float64(nil), out.Time...),
			Dates:  append([]string(nil), out.Dates...),
			States: states,
		},
	}

	if out.Draws > 1 {
		b.results.Series.Timeseries.Quantiles = EnsembleQuantiles(out, DefaultQuantiles)
	}
	return b
}

// WithSolver records the solver used.
func (b *Builder) WithSolver(method *solver.Method, opts *solver.Options) *Builder {
	if method != nil {
		b.results.Metadata.Solver = method.Name
	}
	if opts != nil {
		b.results.Simulation.Options = &SolverOptions{
			Dt:       opts.Dt,
			Abstol:   opts.Abstol,
			Reltol:   opts.Reltol,
			Adaptive: opts.Adaptive,
		}
	}
	return b
}

// WithStatus records the run outcome.
func (b *Builder) WithStatus(status string, err error) *Builder {
	b.results.Metadata.Status = status
	if err != nil {
		b.results.Metadata.Error = err.Error()
	}
	return b
}

// WithComputeTime records the wall-clock duration of the run.
func (b *Builder) WithComputeTime(d time.Duration) *Builder {
	b.results.Metadata.ComputeTime = d.Seconds()
	return b
}

// WithAnalysis attaches computed analysis.
func (b *Builder) WithAnalysis(a *Analysis) *Builder {
	b.results.Analysis = a
	return b
}

// Build returns the assembled results.
func (b *Builder) Build() *Results {
	if b.results.Metadata.Status == "" {
		b.results.Metadata.Status = "success"
	}
	return &b.results
}
