package calib

import (
	"fmt"
	"math"

	"github.com/epimath/go-epimod/model"
)

// Objective scores a simulated output against observed data. Lower is
// better; the fitting driver minimizes it.
type Objective func(out *model.Output, data *Dataset) (float64, error)

// seriesAt sums a state over all strata and linearly interpolates the
// aggregate onto the observed time points.
func seriesAt(out *model.Output, state string, times []float64) ([]float64, error) {
	total, err := out.Total(state, 0)
	if err != nil {
		return nil, err
	}
	result := make([]float64, len(times))
	for i, t := range times {
		result[i] = interpolateAt(out.Time, total, t)
	}
	return result, nil
}

// interpolateAt performs linear interpolation at a single time point,
// clamping outside the simulated span.
func interpolateAt(times, values []float64, t float64) float64 {
	if t <= times[0] {
		return values[0]
	}
	last := len(times) - 1
	if t >= times[last] {
		return values[last]
	}
	for i := 0; i < last; i++ {
		if times[i] <= t && t <= times[i+1] {
			dt := times[i+1] - times[i]
			if dt == 0 {
				return values[i]
			}
			alpha := (t - times[i]) / dt
			return values[i]*(1-alpha) + values[i+1]*alpha
		}
	}
	return values[last]
}

// SSE returns a weighted sum-of-squared-errors objective over the
// dataset's series. Weights default to 1 for series not in the map; a
// nil map weights everything equally.
func SSE(weights map[string]float64) Objective {
	return func(out *model.Output, data *Dataset) (float64, error) {
		total := 0.0
		for _, name := range data.Names {
			sim, err := seriesAt(out, name, data.Times)
			if err != nil {
				return 0, err
			}
			w := 1.0
			if weights != nil {
				if wv, ok := weights[name]; ok {
					w = wv
				}
			}
			obs := data.Series[name]
			for i := range obs {
				diff := sim[i] - obs[i]
				total += w * diff * diff
			}
		}
		return total, nil
	}
}

// GaussianNLL returns a negative Gaussian log-likelihood objective:
// observations are modeled as the simulated series plus iid Gaussian
// noise with per-series standard deviation sigma. Missing sigmas are
// an error, not a default — the noise scale is a modeling choice.
func GaussianNLL(sigma map[string]float64) Objective {
	return func(out *model.Output, data *Dataset) (float64, error) {
		nll := 0.0
		for _, name := range data.Names {
			sd, ok := sigma[name]
			if !ok || sd <= 0 {
				return 0, fmt.Errorf("calib: no positive noise sigma for series %s", name)
			}
			sim, err := seriesAt(out, name, data.Times)
			if err != nil {
				return 0, err
			}
			obs := data.Series[name]
			c := math.Log(2 * math.Pi * sd * sd)
			for i := range obs {
				diff := sim[i] - obs[i]
				nll += 0.5 * (c + diff*diff/(sd*sd))
			}
		}
		return nll, nil
	}
}
