package results

import (
	"math"
	"sort"
)

// Analyze computes insights over the aggregate series of a run: wave
// peaks per state and basic statistics.
func Analyze(r *Results) *Analysis {
	analysis := &Analysis{
		Statistics: make(map[string]Stat),
	}

	times := r.Series.Timeseries.Time
	for state, data := range r.Series.Timeseries.States {
		for _, p := range findPeaks(times, data) {
			p.State = state
			analysis.Peaks = append(analysis.Peaks, p)
		}
		analysis.Statistics[state] = computeStats(data)
	}

	sort.Slice(analysis.Peaks, func(i, j int) bool {
		if analysis.Peaks[i].State != analysis.Peaks[j].State {
			return analysis.Peaks[i].State < analysis.Peaks[j].State
		}
		return analysis.Peaks[i].Time < analysis.Peaks[j].Time
	})
	return analysis
}

// findPeaks detects local maxima: the epidemic waves of a series.
// Endpoints never count.
func findPeaks(times, data []float64) []Peak {
	if len(data) < 3 {
		return nil
	}
	var peaks []Peak
	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] {
			peaks = append(peaks, Peak{Time: times[i], Value: data[i]})
		}
	}
	return peaks
}

func computeStats(data []float64) Stat {
	if len(data) == 0 {
		return Stat{}
	}

	min, max := data[0], data[0]
	sum := 0.0
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(data))

	variance := 0.0
	for _, v := range data {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(data))

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return Stat{
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		Std:    math.Sqrt(variance),
	}
}
