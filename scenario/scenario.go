// Package scenario loads simulation scenarios from YAML files: which
// disease variant to run, over which time span, with which parameter
// and initial-condition overrides, and how to solve it.
package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/epimath/go-epimod/disease"
	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/solver"
)

// Scenario is the on-disk description of a run.
type Scenario struct {
	Model    string          `yaml:"model"`
	Span     SpanConfig      `yaml:"span"`
	Calendar *CalendarConfig `yaml:"calendar,omitempty"`
	Draws    int             `yaml:"draws,omitempty"`
	Solver   *SolverConfig   `yaml:"solver,omitempty"`

	// Parameters overrides variant defaults. Values may be scalars,
	// lists (per-stratum vectors), or lists of lists (matrices).
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Initial overrides initial state values per state name, flattened
	// in the state's storage order. A single value fills an
	// unstratified state.
	Initial map[string][]float64 `yaml:"initial,omitempty"`
}

// SpanConfig describes the simulated time span. EndDate takes
// precedence over End and requires a calendar.
type SpanConfig struct {
	Start   float64 `yaml:"start,omitempty"`
	End     float64 `yaml:"end,omitempty"`
	EndDate string  `yaml:"end_date,omitempty"`
}

// CalendarConfig anchors simulation time to dates.
type CalendarConfig struct {
	StartDate string `yaml:"start_date"`
	Warmup    int    `yaml:"warmup,omitempty"`
}

// SolverConfig selects and tunes the integration method.
type SolverConfig struct {
	Method string  `yaml:"method,omitempty"`
	Dt     float64 `yaml:"dt,omitempty"`
	Dtmax  float64 `yaml:"dtmax,omitempty"`
	Abstol float64 `yaml:"abstol,omitempty"`
	Reltol float64 `yaml:"reltol,omitempty"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario from YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Model == "" {
		return nil, fmt.Errorf("scenario: model name is required")
	}
	if s.Span.End == 0 && s.Span.EndDate == "" {
		return nil, fmt.Errorf("scenario: span end or end_date is required")
	}
	if s.Span.EndDate != "" && s.Calendar == nil {
		return nil, fmt.Errorf("scenario: end_date requires a calendar")
	}
	return &s, nil
}

// Save writes a scenario to a YAML file.
func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Build constructs the model and time span the scenario describes.
// Variant defaults are used for anything the scenario does not
// override.
func (s *Scenario) Build() (*model.Model, model.TimeSpan, error) {
	var span model.TimeSpan

	variant, ok := disease.Get(s.Model)
	if !ok {
		return nil, span, fmt.Errorf("scenario: unknown model %q (have %s)",
			s.Model, strings.Join(disease.Names(), ", "))
	}

	opts := &model.Options{Discrete: variant.Discrete}
	if s.Calendar != nil {
		start, err := time.Parse(model.DateLayout, s.Calendar.StartDate)
		if err != nil {
			return nil, span, fmt.Errorf("scenario: start_date: %w", err)
		}
		opts.Calendar = &model.Calendar{StartDate: start, Warmup: s.Calendar.Warmup}
	}

	params := variant.DefaultParams()
	for name, raw := range s.Parameters {
		v, err := toValue(raw)
		if err != nil {
			return nil, span, fmt.Errorf("scenario: parameter %s: %w", name, err)
		}
		params[name] = v
	}

	initial := variant.DefaultInitial()
	for name, flat := range s.Initial {
		base, ok := initial[name]
		if !ok {
			return nil, span, fmt.Errorf("scenario: initial value for unknown state %q", name)
		}
		if len(flat) != len(base.Data) {
			return nil, span, fmt.Errorf("scenario: initial %s needs %d values, got %d",
				name, len(base.Data), len(flat))
		}
		arr := base.Clone()
		copy(arr.Data, flat)
		initial[name] = arr
	}

	m, err := model.New(variant.Definition, initial, params, opts)
	if err != nil {
		return nil, span, err
	}

	span = model.TimeSpan{Start: s.Span.Start, End: s.Span.End}
	if s.Span.EndDate != "" {
		span, err = m.SpanToDate(s.Span.EndDate)
		if err != nil {
			return nil, span, err
		}
		span.Start = s.Span.Start
	}
	return m, span, nil
}

// SimOptions translates the scenario's draws and solver sections into
// simulation options.
func (s *Scenario) SimOptions() (*model.SimOptions, error) {
	opts := &model.SimOptions{Draws: s.Draws}
	if s.Solver == nil {
		return opts, nil
	}

	if s.Solver.Method != "" {
		method, err := MethodByName(s.Solver.Method)
		if err != nil {
			return nil, err
		}
		opts.Method = method
	}

	sopts := solver.EpidemicOptions()
	if s.Solver.Dt > 0 {
		sopts.Dt = s.Solver.Dt
	}
	if s.Solver.Dtmax > 0 {
		sopts.Dtmax = s.Solver.Dtmax
	}
	if s.Solver.Abstol > 0 {
		sopts.Abstol = s.Solver.Abstol
	}
	if s.Solver.Reltol > 0 {
		sopts.Reltol = s.Solver.Reltol
	}
	opts.Solver = sopts
	return opts, nil
}

// MethodByName resolves a solver method from its scenario-file name.
func MethodByName(name string) (*solver.Method, error) {
	switch strings.ToLower(name) {
	case "tsit5":
		return solver.Tsit5(), nil
	case "rk45", "dopri5":
		return solver.RK45(), nil
	case "rk4":
		return solver.RK4(), nil
	case "euler":
		return solver.Euler(), nil
	case "heun":
		return solver.Heun(), nil
	case "bs32":
		return solver.BS32(), nil
	default:
		return nil, fmt.Errorf("scenario: unknown solver method %q", name)
	}
}

// toValue converts a decoded YAML value into a parameter value.
func toValue(raw any) (model.Value, error) {
	switch x := raw.(type) {
	case float64:
		return model.Scalar(x), nil
	case int:
		return model.Scalar(x), nil
	case []any:
		if len(x) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		if _, nested := x[0].([]any); nested {
			mat := make(model.Matrix, len(x))
			for i, row := range x {
				cells, ok := row.([]any)
				if !ok {
					return nil, fmt.Errorf("mixed matrix rows")
				}
				mat[i] = make([]float64, len(cells))
				for j, cell := range cells {
					f, err := toFloat(cell)
					if err != nil {
						return nil, err
					}
					mat[i][j] = f
				}
			}
			return mat, nil
		}
		vec := make(model.Vector, len(x))
		for i, cell := range x {
			f, err := toFloat(cell)
			if err != nil {
				return nil, err
			}
			vec[i] = f
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
}
