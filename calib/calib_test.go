package calib

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/epimath/go-epimod/model"
)

func timeParse(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// decayDef is a single-state exponential decay whose rate is easy to
// recover from data, making convergence checks exact.
func decayDef() model.Definition {
	return model.Definition{
		Name:       "decay",
		States:     []string{"X"},
		Parameters: []string{"k"},
		Args:       []string{"t", "X", "k"},
		Transition: func(t float64, states []model.StateArray, p model.ParamSet) ([]model.StateArray, error) {
			d := model.Zeros(states[0].Shape)
			d.Data[0] = -p.Scalar("k") * states[0].Data[0]
			return []model.StateArray{d}, nil
		},
	}
}

func decayModel(t *testing.T, k float64) *model.Model {
	t.Helper()
	m, err := model.New(decayDef(),
		map[string]model.StateArray{"X": model.Row(100)},
		model.Params{"k": model.Scalar(k)}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

// decayData generates exact observations for rate k.
func decayData(t *testing.T, k float64) *Dataset {
	t.Helper()
	times := []float64{0, 2, 4, 6, 8, 10}
	obs := make([]float64, len(times))
	for i, tv := range times {
		obs[i] = 100 * math.Exp(-k*tv)
	}
	d, err := NewDataset(times, map[string][]float64{"X": obs})
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}
	return d
}

func TestNewDatasetValidates(t *testing.T) {
	if _, err := NewDataset(nil, nil); err == nil {
		t.Error("Empty times should be rejected")
	}
	if _, err := NewDataset([]float64{0, 1}, map[string][]float64{"X": {1}}); err == nil {
		t.Error("Mismatched series length should be rejected")
	}
	if _, err := NewDataset([]float64{0, 0}, map[string][]float64{"X": {1, 2}}); err == nil {
		t.Error("Non-increasing times should be rejected")
	}
}

func TestDatasetShift(t *testing.T) {
	d, _ := NewDataset([]float64{0, 5}, map[string][]float64{"X": {1, 2}})
	s := d.Shift(10)
	if s.Times[0] != 10 || s.Times[1] != 15 {
		t.Errorf("Shift should move times, got %v", s.Times)
	}
	if d.Times[0] != 0 {
		t.Error("Shift should not mutate the original")
	}
}

func TestFitRecoversDecayRate(t *testing.T) {
	trueK := 0.35
	prob := &Problem{
		Model: decayModel(t, 0.1), // start well away from the truth
		Data:  decayData(t, trueK),
		Names: []string{"k"},
		Span:  model.Until(10),
	}

	res, err := Fit(prob, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !res.Converged {
		t.Error("Fit should converge on a 1-parameter problem")
	}
	if math.Abs(res.ByName["k"]-trueK) > 0.01 {
		t.Errorf("Expected k near %f, got %f", trueK, res.ByName["k"])
	}
	if res.FinalLoss >= res.InitialLoss {
		t.Errorf("Loss should improve: %f -> %f", res.InitialLoss, res.FinalLoss)
	}

	// The fitted value is written back to the model baseline.
	if got := float64(prob.Model.Parameters()["k"].(model.Scalar)); math.Abs(got-trueK) > 0.01 {
		t.Errorf("Model baseline should carry the fit, got %f", got)
	}
}

func TestFitCoordinateDescent(t *testing.T) {
	trueK := 0.2
	prob := &Problem{
		Model: decayModel(t, 0.05),
		Data:  decayData(t, trueK),
		Names: []string{"k"},
		Span:  model.Until(10),
	}
	opts := DefaultFitOptions()
	opts.Method = "coordinate-descent"
	opts.MaxIters = 2000

	res, err := Fit(prob, opts)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if math.Abs(res.ByName["k"]-trueK) > 0.02 {
		t.Errorf("Expected k near %f, got %f", trueK, res.ByName["k"])
	}
}

func TestFitRejectsUnknownMethod(t *testing.T) {
	prob := &Problem{
		Model: decayModel(t, 0.1),
		Data:  decayData(t, 0.2),
		Names: []string{"k"},
		Span:  model.Until(10),
	}
	opts := DefaultFitOptions()
	opts.Method = "gradient-descent"
	if _, err := Fit(prob, opts); err == nil {
		t.Error("Unknown method should be rejected")
	}
}

func TestSSEObjectiveZeroOnPerfectFit(t *testing.T) {
	m := decayModel(t, 0.3)
	out, err := m.Simulate(model.Until(10), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// Build data directly from the simulation: SSE must be ~0.
	times := []float64{0, 3, 7, 10}
	obs := make([]float64, len(times))
	series, _ := out.Total("X", 0)
	for i, tv := range times {
		obs[i] = interpolateAt(out.Time, series, tv)
	}
	data, _ := NewDataset(times, map[string][]float64{"X": obs})

	v, err := SSE(nil)(out, data)
	if err != nil {
		t.Fatalf("SSE failed: %v", err)
	}
	if v > 1e-12 {
		t.Errorf("Perfect fit should score ~0, got %g", v)
	}
}

func TestGaussianNLLPrefersBetterFit(t *testing.T) {
	data := decayData(t, 0.3)
	obj := GaussianNLL(map[string]float64{"X": 1.0})

	good, err := decayModel(t, 0.3).Simulate(model.Until(10), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	bad, err := decayModel(t, 0.6).Simulate(model.Until(10), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	goodNLL, err := obj(good, data)
	if err != nil {
		t.Fatalf("NLL failed: %v", err)
	}
	badNLL, err := obj(bad, data)
	if err != nil {
		t.Fatalf("NLL failed: %v", err)
	}
	if goodNLL >= badNLL {
		t.Errorf("Better fit should have lower NLL: %f vs %f", goodNLL, badNLL)
	}

	if _, err := GaussianNLL(nil)(good, data); err == nil {
		t.Error("Missing sigma should be an error")
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	content := "day,H_in,D\n0,1,0\n1,3,0\n2,7,1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadCSV(path, nil)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(d.Times) != 3 || d.Times[2] != 2 {
		t.Errorf("Unexpected times %v", d.Times)
	}
	if d.Series["H_in"][2] != 7 || d.Series["D"][2] != 1 {
		t.Errorf("Unexpected series %v", d.Series)
	}
}

func TestLoadCSVDatesNeedCalendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	content := "date,H_in\n2020-03-15,1\n2020-03-16,3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCSV(path, nil); err == nil {
		t.Error("Date rows without a calendar should be rejected")
	}

	start, _ := timeParse("2020-03-15")
	cal := &model.Calendar{StartDate: start, Warmup: 5}
	d, err := LoadCSV(path, cal)
	if err != nil {
		t.Fatalf("LoadCSV with calendar failed: %v", err)
	}
	if d.Times[0] != 5 || d.Times[1] != 6 {
		t.Errorf("Warmup-adjusted times expected [5 6], got %v", d.Times)
	}
}

func TestSamplesAndDraws(t *testing.T) {
	fit := &FitResult{
		Names:  []string{"beta"},
		ByName: map[string]float64{"beta": 0.5},
	}
	samples := GaussianSamples(fit, 0.1, 200, 7)
	chain := samples["beta"]
	if len(chain) != 200 {
		t.Fatalf("Expected 200 samples, got %d", len(chain))
	}
	mean := 0.0
	for _, v := range chain {
		mean += v
	}
	mean /= float64(len(chain))
	if math.Abs(mean-0.5) > 0.02 {
		t.Errorf("Chain mean should be near 0.5, got %f", mean)
	}

	draw := RandomDraw(1)
	p := model.Params{"beta": model.Scalar(0)}
	p = draw(p, samples)
	if p["beta"].(model.Scalar) == 0 {
		t.Error("Draw should replace the parameter from the chain")
	}

	seq := SequentialDraw()
	p = seq(model.Params{}, samples)
	if float64(p["beta"].(model.Scalar)) != chain[0] {
		t.Error("Sequential draw 0 should use sample 0")
	}
	p = seq(model.Params{}, samples)
	if float64(p["beta"].(model.Scalar)) != chain[1] {
		t.Error("Sequential draw 1 should use sample 1")
	}
}
