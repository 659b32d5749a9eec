package solver

import (
	"math"
)

// EquilibriumOptions configures equilibrium detection during solving.
// For epidemic models this detects the disease-free or endemic steady
// state so long-horizon runs can stop early.
type EquilibriumOptions struct {
	// Tolerance for determining equilibrium (max derivative magnitude)
	Tolerance float64
	// Number of consecutive checks below tolerance required
	ConsecutiveSteps int
	// Minimum time before checking for equilibrium
	MinTime float64
	// Check interval (check every N steps, 0 = every step)
	CheckInterval int
}

// DefaultEquilibriumOptions returns sensible defaults for equilibrium
// detection.
func DefaultEquilibriumOptions() *EquilibriumOptions {
	return &EquilibriumOptions{
		Tolerance:        1e-6,
		ConsecutiveSteps: 5,
		MinTime:          1.0,
		CheckInterval:    10,
	}
}

// StrictEquilibriumOptions returns options for high-confidence
// equilibrium detection.
func StrictEquilibriumOptions() *EquilibriumOptions {
	return &EquilibriumOptions{
		Tolerance:        1e-9,
		ConsecutiveSteps: 10,
		MinTime:          5.0,
		CheckInterval:    1,
	}
}

// EquilibriumResult contains information about equilibrium detection.
type EquilibriumResult struct {
	// Whether equilibrium was reached
	Reached bool
	// Time at which equilibrium was detected
	Time float64
	// State at detection (or final state if not reached)
	State []float64
	// Maximum derivative magnitude at that state
	MaxChange float64
	// Number of accepted steps taken
	Steps int
	// Reason for termination
	Reason string
}

// SolveUntilEquilibrium integrates until the system reaches equilibrium
// or the time span is exhausted. The returned solution covers the
// integrated portion of the span.
func SolveUntilEquilibrium(f Func, tspan [2]float64, y0 []float64, method *Method, opts *Options, eqOpts *EquilibriumOptions) (*Solution, *EquilibriumResult, error) {
	if method == nil {
		method = Tsit5()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if eqOpts == nil {
		eqOpts = DefaultEquilibriumOptions()
	}

	t0, tf := tspan[0], tspan[1]
	n := len(y0)
	numStages := len(method.C)

	tOut := []float64{t0}
	yOut := [][]float64{append([]float64(nil), y0...)}
	tcur := t0
	ycur := append([]float64(nil), y0...)
	dtcur := opts.Dt
	nsteps := 0
	consecutiveSmall := 0
	checkCounter := 0

	eqResult := &EquilibriumResult{Reason: "time_exhausted"}

	for tcur < tf && nsteps < opts.Maxiters {
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		k := make([][]float64, numStages)
		k0, err := f(tcur, ycur)
		if err != nil {
			return nil, nil, err
		}
		k[0] = k0

		for stage := 1; stage < numStages; stage++ {
			tstage := tcur + method.C[stage]*dtcur
			ystage := append([]float64(nil), ycur...)
			for j := 0; j < stage; j++ {
				aj := 0.0
				if len(method.A) > stage && len(method.A[stage]) > j {
					aj = method.A[stage][j]
				}
				if aj != 0 {
					scale := dtcur * aj
					for i := 0; i < n; i++ {
						ystage[i] += scale * k[j][i]
					}
				}
			}
			ks, err := f(tstage, ystage)
			if err != nil {
				return nil, nil, err
			}
			k[stage] = ks
		}

		ynext := append([]float64(nil), ycur...)
		for j := 0; j < len(method.B); j++ {
			if method.B[j] != 0 {
				scale := dtcur * method.B[j]
				for i := 0; i < n; i++ {
					ynext[i] += scale * k[j][i]
				}
			}
		}

		errEst := 0.0
		if opts.Adaptive {
			for i := 0; i < n; i++ {
				e := 0.0
				for j := 0; j < len(method.Bhat); j++ {
					e += dtcur * method.Bhat[j] * k[j][i]
				}
				scale := opts.Abstol + opts.Reltol*math.Max(math.Abs(ycur[i]), math.Abs(ynext[i]))
				if scale == 0 {
					scale = opts.Abstol
				}
				if v := math.Abs(e) / scale; v > errEst {
					errEst = v
				}
			}
		}

		if !opts.Adaptive || errEst <= 1.0 || dtcur <= opts.Dtmin {
			tcur += dtcur
			ycur = ynext
			tOut = append(tOut, tcur)
			yOut = append(yOut, append([]float64(nil), ycur...))
			nsteps++

			checkCounter++
			if tcur >= t0+eqOpts.MinTime && (eqOpts.CheckInterval == 0 || checkCounter >= eqOpts.CheckInterval) {
				checkCounter = 0
				maxChange := maxAbs(k[0])

				if maxChange < eqOpts.Tolerance {
					consecutiveSmall++
					if consecutiveSmall >= eqOpts.ConsecutiveSteps {
						eqResult.Reached = true
						eqResult.Time = tcur
						eqResult.State = append([]float64(nil), ycur...)
						eqResult.MaxChange = maxChange
						eqResult.Reason = "equilibrium_reached"
						break
					}
				} else {
					consecutiveSmall = 0
				}
			}

			if opts.Adaptive && errEst > 0 {
				factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(opts.Dtmax, math.Max(opts.Dtmin, dtcur*factor))
			}
		} else {
			factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(opts.Dtmin, dtcur*factor)
		}
	}

	if nsteps >= opts.Maxiters {
		eqResult.Reason = "max_iterations"
	}

	eqResult.Steps = nsteps
	if !eqResult.Reached {
		eqResult.Time = tcur
		eqResult.State = append([]float64(nil), ycur...)
		dy, err := f(tcur, ycur)
		if err != nil {
			return nil, nil, err
		}
		eqResult.MaxChange = maxAbs(dy)
	}

	return &Solution{T: tOut, Y: yOut}, eqResult, nil
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// IsEquilibrium reports whether a state is stationary for the given
// right-hand side within tolerance.
func IsEquilibrium(f Func, t float64, y []float64, tolerance float64) (bool, error) {
	dy, err := f(t, y)
	if err != nil {
		return false, err
	}
	return maxAbs(dy) < tolerance, nil
}

// FindEquilibrium solves until equilibrium and returns just the final
// state and whether equilibrium was formally reached.
func FindEquilibrium(f Func, tspan [2]float64, y0 []float64) ([]float64, bool, error) {
	_, result, err := SolveUntilEquilibrium(f, tspan, y0, nil, nil, nil)
	if err != nil {
		return nil, false, err
	}
	return result.State, result.Reached, nil
}
