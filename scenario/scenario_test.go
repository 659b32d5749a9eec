package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/epimath/go-epimod/model"
)

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing model", "span:\n  end: 100\n", "model name is required"},
		{"missing end", "model: multivariant_sir\n", "span end or end_date"},
		{"end date without calendar", "model: multivariant_sir\nspan:\n  end_date: \"2020-09-01\"\n", "requires a calendar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestBuildWithOverrides(t *testing.T) {
	doc := `
model: multivariant_sir
span:
  end: 50
draws: 10
solver:
  method: rk45
  reltol: 1.0e-5
parameters:
  beta: 0.05
  injection_ratio: 0.0
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	m, span, err := s.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if span.End != 50 {
		t.Errorf("expected span end 50, got %f", span.End)
	}

	if beta := m.Parameters()["beta"].(model.Scalar); beta != 0.05 {
		t.Errorf("expected beta override 0.05, got %f", float64(beta))
	}

	opts, err := s.SimOptions()
	if err != nil {
		t.Fatalf("sim options failed: %v", err)
	}
	if opts.Draws != 10 {
		t.Errorf("expected 10 draws, got %d", opts.Draws)
	}
	if opts.Method.Name != "RK45" {
		t.Errorf("unexpected method: %s", opts.Method.Name)
	}
	if opts.Solver.Reltol != 1e-5 {
		t.Errorf("expected reltol override, got %g", opts.Solver.Reltol)
	}
}

func TestBuildWithCalendarEndDate(t *testing.T) {
	doc := `
model: multivariant_sir
calendar:
  start_date: "2020-03-15"
  warmup: 5
span:
  end_date: "2020-04-14"
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m, span, err := s.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if m.Calendar() == nil {
		t.Fatal("calendar should be attached")
	}
	// 30 days after start plus 5 warmup days.
	if span.End != 35 {
		t.Errorf("expected span end 35, got %f", span.End)
	}
}

func TestBuildRejectsUnknownModel(t *testing.T) {
	s := &Scenario{Model: "measles", Span: SpanConfig{End: 10}}
	_, _, err := s.Build()
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("expected unknown model error, got: %v", err)
	}
}

func TestInitialOverride(t *testing.T) {
	s := &Scenario{
		Model: "multivariant_sir",
		Span:  SpanConfig{End: 10},
		Initial: map[string][]float64{
			"I": {5, 5, 5},
		},
	}
	m, span, err := s.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	out, err := m.Simulate(span, nil)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	series, err := out.Total("I", 0)
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if series[0] != 15 {
		t.Errorf("expected initial infected 15, got %f", series[0])
	}
}

func TestInitialOverrideLengthMismatch(t *testing.T) {
	s := &Scenario{
		Model:   "multivariant_sir",
		Span:    SpanConfig{End: 10},
		Initial: map[string][]float64{"I": {1, 2}},
	}
	if _, _, err := s.Build(); err == nil {
		t.Error("mismatched initial length should be rejected")
	}
}

func TestMethodByName(t *testing.T) {
	for _, name := range []string{"tsit5", "rk45", "rk4", "euler", "heun", "bs32", "Tsit5"} {
		if _, err := MethodByName(name); err != nil {
			t.Errorf("method %s should resolve: %v", name, err)
		}
	}
	if _, err := MethodByName("leapfrog"); err == nil {
		t.Error("unknown method should be rejected")
	}
}

func TestMatrixParameterOverride(t *testing.T) {
	doc := `
model: multivariant_sir
span:
  end: 10
parameters:
  Nc:
    - [2.0, 1.0, 0.5]
    - [1.0, 2.0, 1.0]
    - [0.5, 1.0, 2.0]
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m, _, err := s.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	nc, ok := m.Parameters()["Nc"].(model.Matrix)
	if !ok {
		t.Fatal("Nc should be a matrix")
	}
	if nc[0][0] != 2.0 || nc[0][2] != 0.5 {
		t.Errorf("matrix override lost: %v", nc)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := &Scenario{
		Model:      "covid19_seird",
		Span:       SpanConfig{End: 180},
		Draws:      50,
		Parameters: map[string]any{"beta": 0.04},
	}
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := Save(path, s); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if back.Model != "covid19_seird" || back.Span.End != 180 || back.Draws != 50 {
		t.Errorf("round trip lost fields: %+v", back)
	}
}
