package calib

import (
	"fmt"
	"math"

	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/solver"
)

// Problem binds a model to observed data and names the free scalar
// parameters to fit.
type Problem struct {
	Model *model.Model
	Data  *Dataset

	// Names lists the scalar parameters being estimated, in the order
	// their values appear in fit vectors.
	Names []string

	// Span is the simulated window; it must cover the data's times.
	Span model.TimeSpan

	// Objective scores each trial; nil means unweighted SSE.
	Objective Objective
}

// FitOptions configures the parameter fitting process.
type FitOptions struct {
	MaxIters      int     // Maximum number of iterations
	Tolerance     float64 // Convergence tolerance for loss
	Method        string  // Optimization method: "nelder-mead", "coordinate-descent"
	StepSize      float64 // Initial step size (for coordinate descent)
	Verbose       bool    // Print progress during optimization
	SolverMethod  *solver.Method
	SolverOptions *solver.Options
}

// DefaultFitOptions returns default fitting options.
func DefaultFitOptions() *FitOptions {
	return &FitOptions{
		MaxIters:      500,
		Tolerance:     1e-6,
		Method:        "nelder-mead",
		StepSize:      0.01,
		Verbose:       false,
		SolverMethod:  solver.Tsit5(),
		SolverOptions: solver.EpidemicOptions(),
	}
}

// FitResult contains the results of parameter fitting.
type FitResult struct {
	Names       []string           // Fitted parameter names
	Params      []float64          // Final parameter values, aligned with Names
	ByName      map[string]float64 // Same values keyed by name
	InitialLoss float64            // Loss before optimization
	FinalLoss   float64            // Loss after optimization
	Iterations  int                // Number of iterations performed
	Converged   bool               // Whether the optimization converged
}

// Fit estimates the problem's free parameters by minimizing the
// objective with a gradient-free method. The model's baseline
// parameters are updated to the fitted values on success.
func Fit(prob *Problem, opts *FitOptions) (*FitResult, error) {
	if opts == nil {
		opts = DefaultFitOptions()
	}
	if len(prob.Names) == 0 {
		return nil, fmt.Errorf("calib: no parameters to fit")
	}
	objective := prob.Objective
	if objective == nil {
		objective = SSE(nil)
	}

	baseline := prob.Model.Parameters()
	x0 := make([]float64, len(prob.Names))
	for i, name := range prob.Names {
		v, ok := baseline[name].(model.Scalar)
		if !ok {
			return nil, fmt.Errorf("calib: parameter %s is not a scalar", name)
		}
		x0[i] = float64(v)
	}

	simOpts := &model.SimOptions{Method: opts.SolverMethod, Solver: opts.SolverOptions}

	// Failed trials (solver blow-up, consistency violations) score as
	// +Inf so the simplex walks away from them instead of aborting.
	loss := func(x []float64) float64 {
		for i, name := range prob.Names {
			if err := prob.Model.SetParam(name, model.Scalar(x[i])); err != nil {
				return math.Inf(1)
			}
		}
		out, err := prob.Model.Simulate(prob.Span, simOpts)
		if err != nil {
			return math.Inf(1)
		}
		v, err := objective(out, prob.Data)
		if err != nil || math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	initialLoss := loss(x0)
	if opts.Verbose {
		fmt.Printf("Initial loss: %.6f\n", initialLoss)
		fmt.Printf("Initial params: %v\n", x0)
	}

	var finalParams []float64
	var finalLoss float64
	var iters int
	var converged bool

	switch opts.Method {
	case "nelder-mead":
		finalParams, finalLoss, iters, converged = nelderMead(loss, x0, opts)
	case "coordinate-descent":
		finalParams, finalLoss, iters, converged = coordinateDescent(loss, x0, opts)
	default:
		return nil, fmt.Errorf("calib: unknown optimization method: %s", opts.Method)
	}

	byName := make(map[string]float64, len(prob.Names))
	for i, name := range prob.Names {
		if err := prob.Model.SetParam(name, model.Scalar(finalParams[i])); err != nil {
			return nil, err
		}
		byName[name] = finalParams[i]
	}

	if opts.Verbose {
		fmt.Printf("Final loss: %.6f\n", finalLoss)
		fmt.Printf("Final params: %v\n", finalParams)
		fmt.Printf("Iterations: %d, Converged: %v\n", iters, converged)
	}

	return &FitResult{
		Names:       append([]string(nil), prob.Names...),
		Params:      finalParams,
		ByName:      byName,
		InitialLoss: initialLoss,
		FinalLoss:   finalLoss,
		Iterations:  iters,
		Converged:   converged,
	}, nil
}

// coordinateDescent implements simple coordinate descent optimization.
func coordinateDescent(f func([]float64) float64, x0 []float64, opts *FitOptions) ([]float64, float64, int, bool) {
	x := make([]float64, len(x0))
	copy(x, x0)

	bestLoss := f(x)
	stepSize := opts.StepSize

	for iter := 0; iter < opts.MaxIters; iter++ {
		improved := false

		for i := 0; i < len(x); i++ {
			oldVal := x[i]

			x[i] = oldVal + stepSize
			posLoss := f(x)

			x[i] = oldVal - stepSize
			negLoss := f(x)

			if posLoss < bestLoss {
				x[i] = oldVal + stepSize
				bestLoss = posLoss
				improved = true
			} else if negLoss < bestLoss {
				x[i] = oldVal - stepSize
				bestLoss = negLoss
				improved = true
			} else {
				x[i] = oldVal
			}
		}

		if opts.Verbose && iter%100 == 0 {
			fmt.Printf("Iter %d: loss = %.6f\n", iter, bestLoss)
		}

		if !improved {
			stepSize *= 0.5
			if stepSize < 1e-10 {
				return x, bestLoss, iter, true
			}
		}

		if bestLoss < opts.Tolerance {
			return x, bestLoss, iter, true
		}
	}

	return x, bestLoss, opts.MaxIters, false
}

// nelderMead implements the Nelder-Mead simplex algorithm.
func nelderMead(f func([]float64) float64, x0 []float64, opts *FitOptions) ([]float64, float64, int, bool) {
	n := len(x0)

	alpha := 1.0 // reflection
	gamma := 2.0 // expansion
	rho := 0.5   // contraction
	sigma := 0.5 // shrink

	simplex := make([][]float64, n+1)
	values := make([]float64, n+1)

	simplex[0] = make([]float64, n)
	copy(simplex[0], x0)
	values[0] = f(simplex[0])

	// Initial simplex perturbs each coordinate in turn.
	for i := 0; i < n; i++ {
		simplex[i+1] = make([]float64, n)
		copy(simplex[i+1], x0)
		simplex[i+1][i] += 0.05 * (1.0 + math.Abs(x0[i]))
		values[i+1] = f(simplex[i+1])
	}

	for iter := 0; iter < opts.MaxIters; iter++ {
		sortSimplex(simplex, values)

		if opts.Verbose && iter%100 == 0 {
			fmt.Printf("Iter %d: best = %.6f, worst = %.6f\n", iter, values[0], values[n])
		}

		if values[n]-values[0] < opts.Tolerance {
			return simplex[0], values[0], iter, true
		}

		// Centroid of the best n points
		centroid := make([]float64, n)
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += simplex[j][i]
			}
			centroid[i] = sum / float64(n)
		}

		// Reflection
		reflected := make([]float64, n)
		for i := 0; i < n; i++ {
			reflected[i] = centroid[i] + alpha*(centroid[i]-simplex[n][i])
		}
		reflectedVal := f(reflected)

		if values[0] <= reflectedVal && reflectedVal < values[n-1] {
			simplex[n] = reflected
			values[n] = reflectedVal
			continue
		}

		// Expansion
		if reflectedVal < values[0] {
			expanded := make([]float64, n)
			for i := 0; i < n; i++ {
				expanded[i] = centroid[i] + gamma*(reflected[i]-centroid[i])
			}
			expandedVal := f(expanded)

			if expandedVal < reflectedVal {
				simplex[n] = expanded
				values[n] = expandedVal
			} else {
				simplex[n] = reflected
				values[n] = reflectedVal
			}
			continue
		}

		// Contraction
		contracted := make([]float64, n)
		if reflectedVal < values[n] {
			for i := 0; i < n; i++ {
				contracted[i] = centroid[i] + rho*(reflected[i]-centroid[i])
			}
		} else {
			for i := 0; i < n; i++ {
				contracted[i] = centroid[i] + rho*(simplex[n][i]-centroid[i])
			}
		}
		contractedVal := f(contracted)

		if contractedVal < math.Min(reflectedVal, values[n]) {
			simplex[n] = contracted
			values[n] = contractedVal
			continue
		}

		// Shrink toward the best point
		for i := 1; i <= n; i++ {
			for j := 0; j < n; j++ {
				simplex[i][j] = simplex[0][j] + sigma*(simplex[i][j]-simplex[0][j])
			}
			values[i] = f(simplex[i])
		}
	}

	sortSimplex(simplex, values)
	return simplex[0], values[0], opts.MaxIters, false
}

// sortSimplex sorts the simplex points by their function values.
func sortSimplex(simplex [][]float64, values []float64) {
	n := len(values)
	for i := 1; i < n; i++ {
		val := values[i]
		point := simplex[i]
		j := i - 1
		for j >= 0 && values[j] > val {
			values[j+1] = values[j]
			simplex[j+1] = simplex[j]
			j--
		}
		values[j+1] = val
		simplex[j+1] = point
	}
}
