package solver

import (
	"math"
)

// ImplicitEuler solves using the backward Euler method.
// This is an A-stable implicit method suitable for stiff ODEs.
// It uses fixed-point iteration to solve the implicit equation.
//
// For stiff problems where explicit methods (Tsit5, RK45) require
// extremely small time steps, implicit methods can be much more
// efficient.
func ImplicitEuler(f Func, tspan [2]float64, y0 []float64, opts *Options) (*Solution, error) {
	if opts == nil {
		opts = StiffOptions()
	}

	dt := opts.Dt
	maxiters := opts.Maxiters
	abstol := opts.Abstol

	t0, tf := tspan[0], tspan[1]
	n := len(y0)

	tOut := []float64{t0}
	yOut := [][]float64{append([]float64(nil), y0...)}
	tcur := t0
	ycur := append([]float64(nil), y0...)
	nsteps := 0

	// Fixed-point iteration parameters
	maxFixedPoint := 50
	fixedPointTol := abstol * 10

	for tcur < tf && nsteps < maxiters {
		dtcur := dt
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		tnext := tcur + dtcur

		// Backward Euler: y_{n+1} = y_n + dt * f(t_{n+1}, y_{n+1})
		// Solved by fixed-point iteration: y^{k+1} = y_n + dt * f(t_{n+1}, y^k)
		// starting from an explicit Euler guess.
		dy, err := f(tcur, ycur)
		if err != nil {
			return nil, err
		}
		ynext := make([]float64, n)
		for i := 0; i < n; i++ {
			ynext[i] = ycur[i] + dtcur*dy[i]
		}

		for iter := 0; iter < maxFixedPoint; iter++ {
			dynext, err := f(tnext, ynext)
			if err != nil {
				return nil, err
			}
			maxDiff := 0.0
			for i := 0; i < n; i++ {
				ynew := ycur[i] + dtcur*dynext[i]
				if diff := math.Abs(ynew - ynext[i]); diff > maxDiff {
					maxDiff = diff
				}
				ynext[i] = ynew
			}
			if maxDiff < fixedPointTol {
				break
			}
		}

		tcur = tnext
		ycur = ynext
		tOut = append(tOut, tcur)
		yOut = append(yOut, append([]float64(nil), ycur...))
		nsteps++
	}

	if tcur < tf {
		return nil, &stallError{method: "ImplicitEuler", t: tcur, tf: tf, steps: nsteps}
	}

	return &Solution{T: tOut, Y: yOut}, nil
}

type stallError struct {
	method string
	t, tf  float64
	steps  int
}

func (e *stallError) Error() string {
	return "solver: " + e.method + " exhausted step budget before reaching the end of the span"
}

// SolveAuto chooses between explicit and implicit methods based on a
// quick stiffness probe of the right-hand side at the initial state.
func SolveAuto(f Func, tspan [2]float64, y0 []float64, opts *Options) (*Solution, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	stiff, err := detectStiffness(f, tspan[0], y0)
	if err != nil {
		return nil, err
	}

	if stiff {
		implicitOpts := &Options{
			Dt:       opts.Dt,
			Dtmin:    opts.Dtmin,
			Dtmax:    opts.Dtmax,
			Abstol:   opts.Abstol,
			Reltol:   opts.Reltol,
			Maxiters: opts.Maxiters,
			Adaptive: false, // implicit Euler uses fixed steps
		}
		return ImplicitEuler(f, tspan, y0, implicitOpts)
	}

	return Solve(f, tspan, y0, Tsit5(), opts)
}

// detectStiffness is a heuristic: a large spread between the largest
// and smallest non-zero derivative components at the initial state
// suggests widely separated time scales.
func detectStiffness(f Func, t0 float64, y0 []float64) (bool, error) {
	dy, err := f(t0, y0)
	if err != nil {
		return false, err
	}

	maxDy := 0.0
	minDy := math.MaxFloat64
	for _, v := range dy {
		absV := math.Abs(v)
		if absV > 1e-10 {
			if absV > maxDy {
				maxDy = absV
			}
			if absV < minDy {
				minDy = absV
			}
		}
	}

	if minDy < 1e-10 || maxDy < 1e-10 {
		return false, nil
	}

	return maxDy/minDy > 1000, nil
}
