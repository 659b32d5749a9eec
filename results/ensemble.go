package results

import (
	"fmt"
	"math"
	"sort"

	"github.com/epimath/go-epimod/model"
)

// DefaultQuantiles are the bands typically drawn for epidemic
// projections: the median plus 50% and 95% credible intervals.
var DefaultQuantiles = []float64{0.025, 0.25, 0.5, 0.75, 0.975}

// EnsembleQuantiles computes, for every state, the per-time-point
// quantiles of the strata-summed series over the draws axis. Keys are
// labels like "q0.025". Deterministic output (no draws) yields nil.
func EnsembleQuantiles(out *model.Output, probs []float64) map[string]map[string][]float64 {
	if out.Draws < 2 {
		return nil
	}
	nT := len(out.Time)

	result := make(map[string]map[string][]float64, len(out.StateNames))
	for _, state := range out.StateNames {
		// One strata-summed series per draw.
		perDraw := make([][]float64, out.Draws)
		for d := 0; d < out.Draws; d++ {
			series, err := out.Total(state, d)
			if err != nil {
				return nil
			}
			perDraw[d] = series
		}

		bands := make(map[string][]float64, len(probs))
		scratch := make([]float64, out.Draws)
		for _, p := range probs {
			band := make([]float64, nT)
			for ti := 0; ti < nT; ti++ {
				for d := 0; d < out.Draws; d++ {
					scratch[d] = perDraw[d][ti]
				}
				band[ti] = Quantile(scratch, p)
			}
			bands[quantileLabel(p)] = band
		}
		result[state] = bands
	}
	return result
}

func quantileLabel(p float64) string {
	return fmt.Sprintf("q%g", p)
}

// Quantile returns the p-quantile of values using linear interpolation
// between order statistics. The input is not modified.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// EnsembleMean returns the mean strata-summed series of a state over
// all draws.
func EnsembleMean(out *model.Output, state string) ([]float64, error) {
	draws := out.Draws
	if draws == 0 {
		return out.Total(state, 0)
	}
	nT := len(out.Time)
	mean := make([]float64, nT)
	for d := 0; d < draws; d++ {
		series, err := out.Total(state, d)
		if err != nil {
			return nil, err
		}
		for ti, v := range series {
			mean[ti] += v
		}
	}
	for ti := range mean {
		mean[ti] /= float64(draws)
	}
	return mean, nil
}
