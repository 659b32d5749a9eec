package sensitivity

import (
	"testing"

	"github.com/epimath/go-epimod/disease"
	"github.com/epimath/go-epimod/model"
)

func sirAnalyzer(t *testing.T, scorer Scorer) *Analyzer {
	t.Helper()
	v, _ := disease.Get("multivariant_sir")
	m, err := v.Build(nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// Single-variant dynamics keep the outcome monotone in beta.
	if err := m.SetParam("injection_ratio", model.Scalar(0)); err != nil {
		t.Fatal(err)
	}
	return NewAnalyzer(m, model.Until(120), scorer)
}

func TestAnalyzeParamsRanksTransmission(t *testing.T) {
	a := sirAnalyzer(t, AttackRateScorer("S"))
	res, err := a.AnalyzeParams([]string{"beta", "gamma", "injection_day"}, 0.1)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if res.Baseline <= 0 || res.Baseline > 1 {
		t.Fatalf("attack rate should be in (0, 1], got %f", res.Baseline)
	}
	if res.Impact["beta"] <= 0 {
		t.Errorf("raising beta should raise the attack rate, impact %f", res.Impact["beta"])
	}
	if res.Impact["gamma"] >= 0 {
		t.Errorf("raising gamma should lower the attack rate, impact %f", res.Impact["gamma"])
	}
	// With the variant switched off, the injection day is inert.
	if imp := res.Impact["injection_day"]; imp != 0 {
		t.Errorf("injection_day should have no impact, got %f", imp)
	}
	if res.Ranking[len(res.Ranking)-1].Name != "injection_day" {
		t.Errorf("inert parameter should rank last: %+v", res.Ranking)
	}
}

func TestAnalyzeParamsRestoresBaseline(t *testing.T) {
	a := sirAnalyzer(t, FinalScorer("R"))
	before := float64(a.m.Parameters()["beta"].(model.Scalar))
	if _, err := a.AnalyzeParams([]string{"beta"}, 0.5); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	after := float64(a.m.Parameters()["beta"].(model.Scalar))
	if before != after {
		t.Errorf("beta should be restored: %f -> %f", before, after)
	}
}

func TestAnalyzeRejectsNonScalar(t *testing.T) {
	a := sirAnalyzer(t, FinalScorer("R"))
	if _, err := a.AnalyzeParams([]string{"Nc"}, 0.1); err == nil {
		t.Error("matrix parameter should be rejected")
	}
	if _, err := a.AnalyzeParams([]string{"R0"}, 0.1); err == nil {
		t.Error("unknown parameter should be rejected")
	}
}

func TestSweepParam(t *testing.T) {
	a := sirAnalyzer(t, PeakScorer("I"))
	res, err := a.SweepParamRange("beta", 0.1, 0.5, 5)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(res.Scores) != 5 {
		t.Fatalf("expected 5 scores, got %d", len(res.Scores))
	}
	// The epidemic peak grows with transmission.
	if res.Best.Value != 0.5 || res.Worst.Value != 0.1 {
		t.Errorf("peak should be monotone in beta: best %f worst %f", res.Best.Value, res.Worst.Value)
	}
	for i := 1; i < len(res.Scores); i++ {
		if res.Scores[i] <= res.Scores[i-1] {
			t.Errorf("scores should increase along the sweep: %v", res.Scores)
			break
		}
	}
}

func TestGradientSign(t *testing.T) {
	a := sirAnalyzer(t, AttackRateScorer("S"))
	g, err := a.Gradient("beta", 0.02)
	if err != nil {
		t.Fatalf("gradient failed: %v", err)
	}
	if g <= 0 {
		t.Errorf("attack rate gradient in beta should be positive, got %f", g)
	}

	grads, err := a.AllGradients([]string{"beta", "gamma"}, 0)
	if err != nil {
		t.Fatalf("gradients failed: %v", err)
	}
	if grads["gamma"] >= 0 {
		t.Errorf("attack rate gradient in gamma should be negative, got %f", grads["gamma"])
	}
}

func TestGridSearch(t *testing.T) {
	a := sirAnalyzer(t, PeakScorer("I"))
	res, err := NewGridSearch(a).
		AddParameter("beta", []float64{0.2, 0.4}).
		AddParameterRange("gamma", 0.1, 0.3, 2).
		Run()
	if err != nil {
		t.Fatalf("grid search failed: %v", err)
	}
	if len(res.Combinations) != 4 {
		t.Fatalf("expected 4 combinations, got %d", len(res.Combinations))
	}
	// The peak is largest at high transmission and slow recovery.
	if res.Best.Parameters["beta"] != 0.4 || res.Best.Parameters["gamma"] != 0.1 {
		t.Errorf("unexpected best combination: %+v", res.Best.Parameters)
	}
}
