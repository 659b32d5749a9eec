// Package results defines the structured output format for simulation
// and calibration runs: run metadata, aggregated time series, ensemble
// quantiles, and JSON io.
package results

import (
	"time"

	"github.com/epimath/go-epimod/model"
)

const SchemaVersion = "1.0.0"

// Results contains complete run output.
type Results struct {
	Version    string     `json:"version"`
	Metadata   Metadata   `json:"metadata"`
	Model      ModelInfo  `json:"model"`
	Simulation Simulation `json:"simulation"`
	Series     Data       `json:"series"`
	Analysis   *Analysis  `json:"analysis,omitempty"`
}

// Metadata contains run execution information.
type Metadata struct {
	RunID       string    `json:"runId"`
	Timestamp   time.Time `json:"timestamp"`
	Solver      string    `json:"solver"`
	Status      string    `json:"status"` // success, error
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// ModelInfo summarizes the model structure.
type ModelInfo struct {
	Name        string              `json:"name"`
	States      []string            `json:"states"`
	Axes        []string            `json:"axes,omitempty"`
	AxisSizes   []int               `json:"axisSizes,omitempty"`
	Coordinates map[string][]string `json:"coordinates,omitempty"`
}

// Simulation records the inputs of the run.
type Simulation struct {
	Timespan   [2]float64     `json:"timespan"`
	Draws      int            `json:"draws,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    *SolverOptions `json:"options,omitempty"`
}

// SolverOptions contains solver configuration.
type SolverOptions struct {
	Dt       float64 `json:"dt,omitempty"`
	Abstol   float64 `json:"abstol,omitempty"`
	Reltol   float64 `json:"reltol,omitempty"`
	Adaptive bool    `json:"adaptive"`
}

// Data contains the run's time series.
type Data struct {
	Summary    Summary    `json:"summary"`
	Timeseries Timeseries `json:"timeseries"`
}

// Summary provides a quick overview.
type Summary struct {
	Points     int                `json:"points"`
	FinalTime  float64            `json:"finalTime"`
	FinalState map[string]float64 `json:"finalState"` // aggregated over strata
}

// Timeseries holds the aggregate series per state. States carries the
// strata-summed series of draw zero; Quantiles, present for ensemble
// runs, maps state name -> quantile label -> series over the draws.
type Timeseries struct {
	Time      []float64                       `json:"time"`
	Dates     []string                        `json:"dates,omitempty"`
	States    map[string][]float64            `json:"states"`
	Quantiles map[string]map[string][]float64 `json:"quantiles,omitempty"`
}

// Analysis contains computed insights over the aggregate series.
type Analysis struct {
	Peaks      []Peak          `json:"peaks,omitempty"`
	Statistics map[string]Stat `json:"statistics,omitempty"`
}

// Peak represents a local maximum of a state series (an epidemic wave).
type Peak struct {
	State string  `json:"state"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Stat contains a statistical summary of one series.
type Stat struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// paramValue converts a model parameter value into its JSON form.
func paramValue(v model.Value) any {
	switch x := v.(type) {
	case model.Scalar:
		return float64(x)
	case model.Vector:
		return []float64(x)
	case model.Matrix:
		return [][]float64(x)
	default:
		return nil
	}
}
