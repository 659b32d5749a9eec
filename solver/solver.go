// Package solver implements explicit Runge-Kutta ODE solvers with
// adaptive step-size control, plus a backward-Euler fallback for stiff
// systems. It operates on plain state vectors; callers supply the
// right-hand-side function.
package solver

import (
	"fmt"
	"math"
)

// Func computes the derivative dy/dt given time t and state y. An error
// aborts the integration and is surfaced to the caller unchanged.
type Func func(t float64, y []float64) ([]float64, error)

// Method is an explicit Runge-Kutta method given by its Butcher tableau.
type Method struct {
	Name  string
	Order int
	C     []float64   // nodes
	A     [][]float64 // stage coefficients
	B     []float64   // solution weights
	Bhat  []float64   // embedded error-estimate weights
}

// Options contains solver configuration parameters.
type Options struct {
	Dt       float64 // initial time step
	Dtmin    float64 // minimum time step
	Dtmax    float64 // maximum time step
	Abstol   float64 // absolute error tolerance
	Reltol   float64 // relative error tolerance
	Maxiters int     // maximum number of accepted steps
	Adaptive bool    // use adaptive step size control
}

// DefaultOptions returns balanced settings suitable for most problems.
func DefaultOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.1,
		Abstol:   1e-6,
		Reltol:   1e-3,
		Maxiters: 100000,
		Adaptive: true,
	}
}

// EpidemicOptions returns options tuned for compartmental population
// models (SIR, SEIRD): day-scale dynamics with occasional sharp policy
// changes.
func EpidemicOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.5,
		Abstol:   1e-6,
		Reltol:   1e-4,
		Maxiters: 200000,
		Adaptive: true,
	}
}

// StiffOptions returns options for systems with widely varying time
// scales, where the explicit methods need very small steps to stay
// stable.
func StiffOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-10,
		Dtmax:    0.01,
		Abstol:   1e-8,
		Reltol:   1e-5,
		Maxiters: 500000,
		Adaptive: true,
	}
}

// Solution holds the accepted integration steps.
type Solution struct {
	T []float64
	Y [][]float64
}

// Final returns the state at the last accepted step, or nil for an
// empty solution.
func (s *Solution) Final() []float64 {
	if len(s.Y) == 0 {
		return nil
	}
	return s.Y[len(s.Y)-1]
}

// Solve integrates dy/dt = f(t, y) over tspan starting from y0. The
// solution contains every accepted step; use SampleAt to resample onto
// an output grid.
func Solve(f Func, tspan [2]float64, y0 []float64, method *Method, opts *Options) (*Solution, error) {
	if method == nil {
		method = Tsit5()
	}
	if opts == nil {
		opts = DefaultOptions()
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

	for tcur < tf && nsteps < opts.Maxiters {
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		// Runge-Kutta stages
		k := make([][]float64, numStages)
		k0, err := f(tcur, ycur)
		if err != nil {
			return nil, err
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
				return nil, err
			}
			k[stage] = ks
		}

		// Candidate solution at the next step
		ynext := append([]float64(nil), ycur...)
		for j := 0; j < len(method.B); j++ {
			if method.B[j] != 0 {
				scale := dtcur * method.B[j]
				for i := 0; i < n; i++ {
					ynext[i] += scale * k[j][i]
				}
			}
		}

		// Embedded error estimate
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
			// Accept
			tcur += dtcur
			ycur = ynext
			tOut = append(tOut, tcur)
			yOut = append(yOut, append([]float64(nil), ycur...))
			nsteps++

			if opts.Adaptive && errEst > 0 {
				factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(opts.Dtmax, math.Max(opts.Dtmin, dtcur*factor))
			}
		} else {
			// Reject and shrink
			factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(method.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(opts.Dtmin, dtcur*factor)
		}
	}

	if tcur < tf {
		return nil, fmt.Errorf("solver: %s did not reach t=%g after %d steps (stalled at t=%g)",
			method.Name, tf, nsteps, tcur)
	}

	return &Solution{T: tOut, Y: yOut}, nil
}

// SampleAt resamples the solution onto the given time points using
// linear interpolation between accepted steps. Points outside the
// solved span clamp to the first or last state.
func SampleAt(sol *Solution, times []float64) [][]float64 {
	out := make([][]float64, len(times))
	for i, t := range times {
		out[i] = interpState(sol, t)
	}
	return out
}

func interpState(sol *Solution, t float64) []float64 {
	ts := sol.T
	if t <= ts[0] {
		return append([]float64(nil), sol.Y[0]...)
	}
	last := len(ts) - 1
	if t >= ts[last] {
		return append([]float64(nil), sol.Y[last]...)
	}

	// Binary search for the bracketing interval.
	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if ts[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}

	dt := ts[hi] - ts[lo]
	if dt == 0 {
		return append([]float64(nil), sol.Y[lo]...)
	}
	alpha := (t - ts[lo]) / dt
	y := make([]float64, len(sol.Y[lo]))
	for i := range y {
		y[i] = sol.Y[lo][i]*(1-alpha) + sol.Y[hi][i]*alpha
	}
	return y
}
