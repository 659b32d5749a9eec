// Package sensitivity analyzes how epidemic outcomes respond to
// parameter changes: per-parameter perturbation impact, one-dimensional
// sweeps, gradient estimation, and grid search over scalar parameters.
package sensitivity

import (
	"fmt"
	"math"
	"sort"

	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/solver"
)

// Scorer reduces a simulation output to a single outcome, such as the
// epidemic peak or the final death toll.
type Scorer func(out *model.Output) (float64, error)

// FinalScorer scores the strata-summed final value of a state.
func FinalScorer(state string) Scorer {
	return func(out *model.Output) (float64, error) {
		series, err := out.Total(state, 0)
		if err != nil {
			return 0, err
		}
		return series[len(series)-1], nil
	}
}

// PeakScorer scores the strata-summed maximum of a state over time.
func PeakScorer(state string) Scorer {
	return func(out *model.Output) (float64, error) {
		series, err := out.Total(state, 0)
		if err != nil {
			return 0, err
		}
		peak := math.Inf(-1)
		for _, v := range series {
			if v > peak {
				peak = v
			}
		}
		return peak, nil
	}
}

// AttackRateScorer scores the fraction of the initial susceptible pool
// depleted by the end of the run.
func AttackRateScorer(susceptible string) Scorer {
	return func(out *model.Output) (float64, error) {
		series, err := out.Total(susceptible, 0)
		if err != nil {
			return 0, err
		}
		if series[0] == 0 {
			return 0, fmt.Errorf("sensitivity: initial %s is zero", susceptible)
		}
		return (series[0] - series[len(series)-1]) / series[0], nil
	}
}

// Result holds the outcome of a perturbation analysis.
type Result struct {
	Baseline float64            // Score with original parameters
	Scores   map[string]float64 // Score when each parameter is perturbed
	Impact   map[string]float64 // Change from baseline (Score - Baseline)
	Ranking  []RankedParam      // Parameters sorted by absolute impact
}

// RankedParam represents a parameter and its impact.
type RankedParam struct {
	Name   string
	Impact float64
}

// Analyzer performs sensitivity analysis on a model.
type Analyzer struct {
	m      *model.Model
	span   model.TimeSpan
	method *solver.Method
	opts   *solver.Options
	scorer Scorer
}

// NewAnalyzer creates a new sensitivity analyzer.
func NewAnalyzer(m *model.Model, span model.TimeSpan, scorer Scorer) *Analyzer {
	return &Analyzer{
		m:      m,
		span:   span,
		method: solver.Tsit5(),
		opts:   solver.EpidemicOptions(),
		scorer: scorer,
	}
}

// WithSolver sets the integration method and options.
func (a *Analyzer) WithSolver(method *solver.Method, opts *solver.Options) *Analyzer {
	a.method = method
	a.opts = opts
	return a
}

// simulate runs the model with scalar overrides applied and returns the
// score. The model's baseline parameters are restored afterwards.
func (a *Analyzer) simulate(overrides map[string]float64) (float64, error) {
	baseline := a.m.Parameters()
	defer func() {
		for name := range overrides {
			a.m.SetParam(name, baseline[name])
		}
	}()
	for name, v := range overrides {
		if err := a.m.SetParam(name, model.Scalar(v)); err != nil {
			return 0, err
		}
	}

	out, err := a.m.Simulate(a.span, &model.SimOptions{Method: a.method, Solver: a.opts})
	if err != nil {
		return 0, err
	}
	return a.scorer(out)
}

// scalarParam reads a scalar parameter from the model's baseline.
func (a *Analyzer) scalarParam(name string) (float64, error) {
	v, ok := a.m.Parameters()[name]
	if !ok {
		return 0, fmt.Errorf("sensitivity: unknown parameter %q", name)
	}
	s, ok := v.(model.Scalar)
	if !ok {
		return 0, fmt.Errorf("sensitivity: parameter %q is not a scalar", name)
	}
	return float64(s), nil
}

// AnalyzeParams perturbs each named scalar parameter by the relative
// amount rel (0.1 means +10%) and measures the score change.
func (a *Analyzer) AnalyzeParams(names []string, rel float64) (*Result, error) {
	if rel == 0 {
		rel = 0.1
	}
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	baseline, err := a.simulate(nil)
	if err != nil {
		return nil, err
	}
	result.Baseline = baseline

	for _, name := range names {
		v, err := a.scalarParam(name)
		if err != nil {
			return nil, err
		}
		perturbed := v * (1 + rel)
		if v == 0 {
			perturbed = rel
		}
		score, err := a.simulate(map[string]float64{name: perturbed})
		if err != nil {
			return nil, err
		}
		result.Scores[name] = score
		result.Impact[name] = score - baseline
	}

	result.Ranking = rankByImpact(result.Impact)
	return result, nil
}

// rankByImpact sorts parameters by absolute impact (descending).
func rankByImpact(impact map[string]float64) []RankedParam {
	ranking := make([]RankedParam, 0, len(impact))
	for name, imp := range impact {
		ranking = append(ranking, RankedParam{Name: name, Impact: imp})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if math.Abs(ranking[i].Impact) != math.Abs(ranking[j].Impact) {
			return math.Abs(ranking[i].Impact) > math.Abs(ranking[j].Impact)
		}
		return ranking[i].Name < ranking[j].Name
	})
	return ranking
}

// SweepResult holds results from a one-dimensional parameter sweep.
type SweepResult struct {
	Parameter string
	Values    []float64
	Scores    []float64
	Best      struct {
		Value float64
		Score float64
	}
	Worst struct {
		Value float64
		Score float64
	}
}

// SweepParam evaluates the score at each value of one scalar parameter.
func (a *Analyzer) SweepParam(name string, values []float64) (*SweepResult, error) {
	result := &SweepResult{
		Parameter: name,
		Values:    values,
		Scores:    make([]float64, len(values)),
	}

	bestScore := math.Inf(-1)
	worstScore := math.Inf(1)
	for i, val := range values {
		score, err := a.simulate(map[string]float64{name: val})
		if err != nil {
			return nil, err
		}
		result.Scores[i] = score

		if score > bestScore {
			bestScore = score
			result.Best.Value = val
			result.Best.Score = score
		}
		if score < worstScore {
			worstScore = score
			result.Worst.Value = val
			result.Worst.Score = score
		}
	}
	return result, nil
}

// SweepParamRange sweeps evenly spaced values in [min, max].
func (a *Analyzer) SweepParamRange(name string, min, max float64, steps int) (*SweepResult, error) {
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	return a.SweepParam(name, values)
}

// Gradient estimates d(score)/d(parameter) by central difference.
func (a *Analyzer) Gradient(name string, h float64) (float64, error) {
	orig, err := a.scalarParam(name)
	if err != nil {
		return 0, err
	}
	if h == 0 {
		h = 0.01 * orig
		if h == 0 {
			h = 0.01
		}
	}

	lo := orig - h
	if lo < 0 {
		lo = 0
	}
	scorePlus, err := a.simulate(map[string]float64{name: orig + h})
	if err != nil {
		return 0, err
	}
	scoreMinus, err := a.simulate(map[string]float64{name: lo})
	if err != nil {
		return 0, err
	}
	return (scorePlus - scoreMinus) / (orig + h - lo), nil
}

// AllGradients computes gradients for the named parameters.
func (a *Analyzer) AllGradients(names []string, h float64) (map[string]float64, error) {
	gradients := make(map[string]float64, len(names))
	for _, name := range names {
		g, err := a.Gradient(name, h)
		if err != nil {
			return nil, err
		}
		gradients[name] = g
	}
	return gradients, nil
}

// GridSearch performs a grid search over multiple scalar parameters.
type GridSearch struct {
	analyzer   *Analyzer
	parameters map[string][]float64
}

// NewGridSearch creates a new grid search.
func NewGridSearch(analyzer *Analyzer) *GridSearch {
	return &GridSearch{
		analyzer:   analyzer,
		parameters: make(map[string][]float64),
	}
}

// AddParameter adds a parameter to search with specific values.
func (g *GridSearch) AddParameter(name string, values []float64) *GridSearch {
	g.parameters[name] = values
	return g
}

// AddParameterRange adds a parameter with evenly spaced values.
func (g *GridSearch) AddParameterRange(name string, min, max float64, steps int) *GridSearch {
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	g.parameters[name] = values
	return g
}

// GridResult holds results from a grid search.
type GridResult struct {
	Combinations []map[string]float64
	Scores       []float64
	Best         struct {
		Parameters map[string]float64
		Score      float64
		Index      int
	}
}

// Run executes the grid search.
func (g *GridSearch) Run() (*GridResult, error) {
	combinations := g.generateCombinations()

	result := &GridResult{
		Combinations: combinations,
		Scores:       make([]float64, len(combinations)),
	}

	bestScore := math.Inf(-1)
	for i, combo := range combinations {
		score, err := g.analyzer.simulate(combo)
		if err != nil {
			return nil, err
		}
		result.Scores[i] = score

		if score > bestScore {
			bestScore = score
			result.Best.Parameters = combo
			result.Best.Score = score
			result.Best.Index = i
		}
	}
	return result, nil
}

// generateCombinations enumerates the full cross product.
func (g *GridSearch) generateCombinations() []map[string]float64 {
	params := make([]string, 0, len(g.parameters))
	for p := range g.parameters {
		params = append(params, p)
	}
	sort.Strings(params)

	total := 1
	for _, p := range params {
		total *= len(g.parameters[p])
	}

	combinations := make([]map[string]float64, total)
	for i := 0; i < total; i++ {
		combo := make(map[string]float64)
		idx := i
		for _, p := range params {
			values := g.parameters[p]
			combo[p] = values[idx%len(values)]
			idx /= len(values)
		}
		combinations[i] = combo
	}
	return combinations
}
