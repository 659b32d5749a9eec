package solver

import (
	"errors"
	"math"
	"testing"
)

// Exponential decay dy/dt = -y has the exact solution y0 * exp(-t).
func decay(_ float64, y []float64) ([]float64, error) {
	return []float64{-y[0]}, nil
}

func TestSolveExponentialDecay(t *testing.T) {
	sol, err := Solve(decay, [2]float64{0, 5}, []float64{1.0}, Tsit5(), DefaultOptions())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	final := sol.Final()
	expected := math.Exp(-5.0)
	if math.Abs(final[0]-expected) > 1e-4 {
		t.Errorf("Expected y(5)=%f, got %f", expected, final[0])
	}
}

func TestSolveHarmonicOscillator(t *testing.T) {
	// y'' = -y as a first-order system; y(t) = cos(t), y'(t) = -sin(t)
	f := func(_ float64, y []float64) ([]float64, error) {
		return []float64{y[1], -y[0]}, nil
	}

	sol, err := Solve(f, [2]float64{0, 2 * math.Pi}, []float64{1, 0}, Tsit5(), DefaultOptions())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	final := sol.Final()
	if math.Abs(final[0]-1.0) > 1e-3 {
		t.Errorf("Expected y(2pi)=1, got %f", final[0])
	}
	if math.Abs(final[1]) > 1e-3 {
		t.Errorf("Expected y'(2pi)=0, got %f", final[1])
	}
}

func TestSolveMethodsAgree(t *testing.T) {
	methods := []*Method{Tsit5(), RK45(), BS32()}
	tspan := [2]float64{0, 3}
	y0 := []float64{2.0}
	expected := 2.0 * math.Exp(-3.0)

	for _, m := range methods {
		sol, err := Solve(decay, tspan, y0, m, DefaultOptions())
		if err != nil {
			t.Fatalf("%s: Solve failed: %v", m.Name, err)
		}
		got := sol.Final()[0]
		if math.Abs(got-expected) > 1e-3 {
			t.Errorf("%s: expected %f, got %f", m.Name, expected, got)
		}
	}
}

func TestSolveFixedStepRK4(t *testing.T) {
	opts := &Options{Dt: 0.01, Maxiters: 10000, Adaptive: false}
	sol, err := Solve(decay, [2]float64{0, 2}, []float64{1.0}, RK4(), opts)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	expected := math.Exp(-2.0)
	if math.Abs(sol.Final()[0]-expected) > 1e-6 {
		t.Errorf("Expected %f, got %f", expected, sol.Final()[0])
	}
}

func TestSolvePropagatesRHSError(t *testing.T) {
	boom := errors.New("negative population")
	f := func(tm float64, y []float64) ([]float64, error) {
		if tm > 1 {
			return nil, boom
		}
		return []float64{1}, nil
	}

	_, err := Solve(f, [2]float64{0, 5}, []float64{0}, Tsit5(), DefaultOptions())
	if !errors.Is(err, boom) {
		t.Fatalf("Expected RHS error to propagate, got %v", err)
	}
}

func TestSampleAtInterpolates(t *testing.T) {
	// Linear growth dy/dt = 1: y(t) = t exactly, so interpolation onto
	// any grid should reproduce the grid values.
	f := func(_ float64, y []float64) ([]float64, error) {
		return []float64{1}, nil
	}
	sol, err := Solve(f, [2]float64{0, 10}, []float64{0}, Tsit5(), DefaultOptions())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	grid := []float64{0, 1, 2.5, 7, 10}
	samples := SampleAt(sol, grid)
	for i, tv := range grid {
		if math.Abs(samples[i][0]-tv) > 1e-6 {
			t.Errorf("At t=%g: expected %g, got %g", tv, tv, samples[i][0])
		}
	}
}

func TestSampleAtClampsOutsideSpan(t *testing.T) {
	sol := &Solution{
		T: []float64{0, 1},
		Y: [][]float64{{5}, {7}},
	}
	samples := SampleAt(sol, []float64{-1, 2})
	if samples[0][0] != 5 {
		t.Errorf("Expected clamp to first state, got %f", samples[0][0])
	}
	if samples[1][0] != 7 {
		t.Errorf("Expected clamp to last state, got %f", samples[1][0])
	}
}

func TestImplicitEulerStiffDecay(t *testing.T) {
	// Stiff decay dy/dt = -1000*(y - cos(t)); solution hugs cos(t).
	f := func(tm float64, y []float64) ([]float64, error) {
		return []float64{-1000 * (y[0] - math.Cos(tm))}, nil
	}

	opts := &Options{Dt: 0.01, Abstol: 1e-8, Maxiters: 100000}
	sol, err := ImplicitEuler(f, [2]float64{0, 1}, []float64{0}, opts)
	if err != nil {
		t.Fatalf("ImplicitEuler failed: %v", err)
	}

	expected := math.Cos(1.0)
	if math.Abs(sol.Final()[0]-expected) > 1e-2 {
		t.Errorf("Expected %f, got %f", expected, sol.Final()[0])
	}
}

func TestSolveUntilEquilibrium(t *testing.T) {
	// Decay reaches a stationary point at zero well before t=1000.
	sol, result, err := SolveUntilEquilibrium(decay, [2]float64{0, 1000}, []float64{1.0}, nil, nil, nil)
	if err != nil {
		t.Fatalf("SolveUntilEquilibrium failed: %v", err)
	}
	if !result.Reached {
		t.Fatalf("Expected equilibrium, got reason %q", result.Reason)
	}
	if result.Time >= 1000 {
		t.Error("Equilibrium should be detected before the span ends")
	}
	if math.Abs(result.State[0]) > 1e-3 {
		t.Errorf("Expected equilibrium near zero, got %f", result.State[0])
	}
	if len(sol.T) != len(sol.Y) {
		t.Error("Solution time and state lengths disagree")
	}
}

func TestDetectStiffness(t *testing.T) {
	stiff := func(_ float64, y []float64) ([]float64, error) {
		return []float64{-10000 * y[0], -0.1 * y[1]}, nil
	}
	got, err := detectStiffness(stiff, 0, []float64{1, 1})
	if err != nil {
		t.Fatalf("detectStiffness failed: %v", err)
	}
	if !got {
		t.Error("Expected stiff system to be detected")
	}

	mild, err := detectStiffness(decay, 0, []float64{1})
	if err != nil {
		t.Fatalf("detectStiffness failed: %v", err)
	}
	if mild {
		t.Error("Expected non-stiff system")
	}
}
