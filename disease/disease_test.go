package disease

import (
	"math"
	"testing"

	"github.com/epimath/go-epimod/model"
)

func TestRegistryListsVariants(t *testing.T) {
	names := Names()
	want := []string{"covid19_seird", "multivariant_sir", "stochastic_sir"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d variants, got %v", len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("Expected %q at %d, got %q", n, i, names[i])
		}
	}
	if _, ok := Get("covid19_seird"); !ok {
		t.Error("covid19_seird should be registered")
	}
	if _, ok := Get("nope"); ok {
		t.Error("Unknown variant should not resolve")
	}
}

func TestMultivariantSIRTakeover(t *testing.T) {
	v := MultivariantSIR()
	m, err := v.Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := m.Simulate(model.Until(300), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// The fitter variant takes over after injection on day 60.
	alpha := out.Get("alpha")
	last := len(out.Time) - 1
	if alpha.At(0, 50) != 0 {
		t.Errorf("Variant fraction should be zero before injection, got %f", alpha.At(0, 50))
	}
	if alpha.At(0, last) < 0.5 {
		t.Errorf("Fitter variant should dominate eventually, got %f", alpha.At(0, last))
	}
}

func TestMultivariantSIRReducesToPlainSIR(t *testing.T) {
	v := MultivariantSIR()
	params := v.DefaultParams()
	params["injection_ratio"] = model.Scalar(0)
	m, err := model.New(v.Definition, v.DefaultInitial(), params, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	out, err := m.Simulate(model.Until(100), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	alpha := out.Get("alpha")
	for _, val := range alpha.Data {
		if val != 0 {
			t.Fatalf("With injection_ratio=0 alpha must stay zero, got %f", val)
		}
	}
}

func TestStochasticSIRNonNegativeAndSeeded(t *testing.T) {
	run := func(seed int64) *model.Output {
		m, err := StochasticSIR(seed).Build(nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		out, err := m.Simulate(model.Until(60), nil)
		if err != nil {
			t.Fatalf("Simulate failed: %v", err)
		}
		return out
	}

	out := run(42)
	for _, name := range []string{"S", "I", "R"} {
		for _, v := range out.Get(name).Data {
			if v < 0 {
				t.Fatalf("State %s went negative: %f", name, v)
			}
		}
	}

	// Same seed reproduces the trajectory.
	again := run(42)
	a, b := out.Get("I"), again.Get("I")
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatal("Same seed should reproduce the stochastic trajectory")
		}
	}
}

func TestSEIRDEpidemicWave(t *testing.T) {
	m, err := SEIRD().Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := m.Simulate(model.Until(200), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// An epidemic runs: deaths accumulate and skew old.
	d, err := out.Total("D", 0)
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	last := len(out.Time) - 1
	if d[last] <= 0 {
		t.Fatal("Deaths should accumulate over the wave")
	}
	for ti := 1; ti <= last; ti++ {
		if d[ti] < d[ti-1]-1e-9 {
			t.Fatalf("Cumulative deaths decreased at t=%g", out.Time[ti])
		}
	}

	darr := out.Get("D")
	if darr.At(8, last) <= darr.At(2, last) {
		t.Error("Mortality should skew toward the oldest age band")
	}

	// Hospital load rises and then declines as the wave passes.
	htot, _ := out.Total("H_tot", 0)
	peak, peakAt := 0.0, 0
	for ti, v := range htot {
		if v > peak {
			peak, peakAt = v, ti
		}
	}
	if peakAt == 0 || peakAt == last {
		t.Error("Hospital load should peak inside the simulated window")
	}
	if htot[last] >= peak {
		t.Error("Hospital load should decline after the peak")
	}
}

func TestSEIRDStratifiedParamValidation(t *testing.T) {
	v := SEIRD()
	params := v.DefaultParams()
	params["h"] = model.Vector{0.1, 0.2} // nine age bands expected
	_, err := model.New(v.Definition, v.DefaultInitial(), params, nil)
	if err == nil {
		t.Fatal("Mis-sized stratified parameter should be rejected")
	}
}

func TestLockdownPolicyFlattensCurve(t *testing.T) {
	v := SEIRD()
	cm := SplitContacts(DefaultContactMatrix())

	runPeak := func(td map[string]model.TimeFunc) float64 {
		m, err := model.New(v.Definition, v.DefaultInitial(), v.DefaultParams(),
			&model.Options{TimeDependent: td})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		out, err := m.Simulate(model.Until(250), nil)
		if err != nil {
			t.Fatalf("Simulate failed: %v", err)
		}
		htot, _ := out.Total("H_tot", 0)
		peak := 0.0
		for _, hv := range htot {
			if hv > peak {
				peak = hv
			}
		}
		return peak
	}

	free := runPeak(nil)
	locked := runPeak(map[string]model.TimeFunc{
		// Hard lockdown on day 40: schools closed, work and leisure cut.
		"Nc": LockdownPolicy(cm, 40, 0, 5, 1.0, 0.2, 0.0, 0.1),
	})

	if locked >= free {
		t.Errorf("Lockdown should flatten the hospital peak: %f vs %f", locked, free)
	}
}

func TestWeightedContactsInterpolate(t *testing.T) {
	cm := SplitContacts(uniformContacts(3, 4.0))
	total := cm.Total()
	if math.Abs(total[0][0]-4.0/3.0) > 1e-12 {
		t.Errorf("Total should reassemble the original matrix, got %f", total[0][0])
	}
	half := cm.Weighted(1, 0, 0, 1)
	if math.Abs(half[1][2]-total[1][2]/2) > 1e-12 {
		t.Errorf("Dropping two locations should halve contacts, got %f", half[1][2])
	}
}

func TestReopeningPolicyPhases(t *testing.T) {
	cm := SplitContacts(uniformContacts(2, 4.0))
	tf := ReopeningPolicy(cm, 10, 50, 0, 5,
		1.0, 0.0, 0.0, 0.0,
		1.0, 0.8, 0.8, 0.8)

	at := func(tv float64) model.Matrix {
		return tf.Fn(model.SimTime{T: tv}, nil, nil).(model.Matrix)
	}

	before := at(5)[0][0]
	lockedDown := at(30)[0][0]
	reopened := at(100)[0][0]
	if !(lockedDown < before) {
		t.Errorf("Lockdown should reduce contacts: %f vs %f", lockedDown, before)
	}
	if !(reopened > lockedDown && reopened < before) {
		t.Errorf("Reopening should partially restore contacts: %f between %f and %f",
			reopened, lockedDown, before)
	}
}
