// Package calib fits free model parameters to observed epidemic time
// series and turns the fit into posterior-style sample collections for
// ensemble simulation. The sampler mechanics of a full Bayesian
// calibration (MCMC, particle swarm) are external collaborators; this
// package covers the objective functions, a gradient-free fitting
// driver, and the sample/draw plumbing they share.
package calib

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/epimath/go-epimod/model"
)

// Dataset holds observed series for calibration. Times are day offsets
// on the simulation clock (the caller converts calendar dates via the
// model's Calendar, warmup included); each series is keyed by the model
// state it constrains.
type Dataset struct {
	Times  []float64
	Series map[string][]float64
	Names  []string // observed state names, stable iteration order
}

// NewDataset builds a dataset, validating that every series covers all
// time points.
func NewDataset(times []float64, series map[string][]float64) (*Dataset, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("calib: times cannot be empty")
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("calib: times must be strictly increasing")
		}
	}
	names := make([]string, 0, len(series))
	for name, values := range series {
		if len(values) != len(times) {
			return nil, fmt.Errorf("calib: series %s has %d values for %d time points",
				name, len(values), len(times))
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return &Dataset{Times: times, Series: series, Names: names}, nil
}

// Shift returns a copy of the dataset with every time point moved by
// the given day offset, aligning calendar-anchored data with a warmup
// period.
func (d *Dataset) Shift(days float64) *Dataset {
	times := make([]float64, len(d.Times))
	for i, t := range d.Times {
		times[i] = t + days
	}
	return &Dataset{Times: times, Series: d.Series, Names: d.Names}
}

// LoadCSV reads a dataset from a CSV file. The header row names the
// columns; the first column holds day offsets (or dates resolved
// through cal when non-nil), the rest are observed series keyed by
// model state name.
func LoadCSV(path string, cal *model.Calendar) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calib: opening dataset: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("calib: reading dataset: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("calib: dataset %s needs a header and at least one row", path)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("calib: dataset %s needs a time column and at least one series", path)
	}

	times := make([]float64, 0, len(rows)-1)
	series := make(map[string][]float64, len(header)-1)
	for _, name := range header[1:] {
		series[name] = make([]float64, 0, len(rows)-1)
	}

	for ri, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("calib: row %d of %s has %d fields, header has %d",
				ri+2, path, len(row), len(header))
		}
		t, err := parseTime(row[0], cal)
		if err != nil {
			return nil, fmt.Errorf("calib: row %d of %s: %w", ri+2, path, err)
		}
		times = append(times, t)
		for ci, name := range header[1:] {
			v, err := strconv.ParseFloat(row[ci+1], 64)
			if err != nil {
				return nil, fmt.Errorf("calib: row %d of %s, column %s: %w", ri+2, path, name, err)
			}
			series[name] = append(series[name], v)
		}
	}

	return NewDataset(times, series)
}

func parseTime(field string, cal *model.Calendar) (float64, error) {
	if v, err := strconv.ParseFloat(field, 64); err == nil {
		return v, nil
	}
	if cal == nil {
		return 0, fmt.Errorf("time field %q is not numeric and no calendar was given", field)
	}
	d, err := time.Parse(model.DateLayout, field)
	if err != nil {
		return 0, fmt.Errorf("time field %q is neither a day offset nor a date: %w", field, err)
	}
	return float64(cal.DayOffset(d)), nil
}
