package plotter

import (
	"strings"
	"testing"

	"github.com/epimath/go-epimod/disease"
	"github.com/epimath/go-epimod/model"
)

func sirOutput(t *testing.T, draws int) *model.Output {
	t.Helper()
	v, _ := disease.Get("multivariant_sir")
	m, err := v.Build(nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	opts := &model.SimOptions{}
	if draws > 0 {
		opts.Draws = draws
		i := 0
		opts.Draw = func(p model.Params, s model.Samples) model.Params {
			p["beta"] = model.Scalar(0.25 + 0.05*float64(i))
			i++
			return p
		}
	}
	out, err := m.Simulate(model.Until(60), opts)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	return out
}

func TestRenderBasicPlot(t *testing.T) {
	p := NewSVGPlotter(800, 400)
	p.SetTitle("Epidemic curve")
	p.AddSeries([]float64{0, 1, 2, 3}, []float64{1, 2, 4, 8}, "I", "")

	svg := p.Render()
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("output should be a complete SVG document")
	}
	if !strings.Contains(svg, "Epidemic curve") {
		t.Error("title missing")
	}
	if !strings.Contains(svg, `<path d="M`) {
		t.Error("series path missing")
	}
	if p.LastPlot == nil {
		t.Fatal("plot metadata should be recorded")
	}
	if p.LastPlot.Xmin > 0 || p.LastPlot.Xmax < 3 {
		t.Errorf("x range should cover the data: [%f, %f]", p.LastPlot.Xmin, p.LastPlot.Xmax)
	}
}

func TestRenderEscapesLabels(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	p.SetTitle("a < b & c")
	p.AddSeries([]float64{0, 1}, []float64{0, 1}, "", "")
	svg := p.Render()
	if strings.Contains(svg, "a < b & c") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(svg, "a &lt; b &amp; c") {
		t.Error("escaped title missing")
	}
}

func TestRenderEmptyPlot(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	svg := p.Render()
	if !strings.HasPrefix(svg, "<svg") {
		t.Error("empty plot should still render")
	}
}

func TestRenderBand(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	x := []float64{0, 1, 2}
	p.AddBand(x, []float64{1, 2, 3}, []float64{3, 4, 5}, "95%", "#377eb8")
	p.AddSeries(x, []float64{2, 3, 4}, "median", "#377eb8")
	svg := p.Render()
	if !strings.Contains(svg, `fill-opacity="0.2"`) {
		t.Error("band fill missing")
	}
	if p.LastPlot.Ymax < 5 {
		t.Errorf("y range should cover the band, got max %f", p.LastPlot.Ymax)
	}
}

func TestPlotOutput(t *testing.T) {
	out := sirOutput(t, 0)
	svg, meta, err := PlotOutput(out, []string{"S", "I", "R"}, 800, 400, "SIR")
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if len(meta.Series) != 3 {
		t.Errorf("expected 3 series, got %d", len(meta.Series))
	}
	for _, label := range []string{"S", "I", "R"} {
		if !strings.Contains(svg, ">"+label+"</text>") {
			t.Errorf("legend entry %s missing", label)
		}
	}
}

func TestPlotOutputUnknownState(t *testing.T) {
	out := sirOutput(t, 0)
	if _, _, err := PlotOutput(out, []string{"X"}, 800, 400, ""); err == nil {
		t.Error("unknown state should be rejected")
	}
}

func TestPlotOutputEnsembleBands(t *testing.T) {
	out := sirOutput(t, 3)
	svg, _, err := PlotOutput(out, []string{"I"}, 800, 400, "")
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if !strings.Contains(svg, `fill-opacity="0.2"`) {
		t.Error("ensemble plot should shade a credible band")
	}
}

func TestTerminalChart(t *testing.T) {
	out := sirOutput(t, 0)
	chart, err := Terminal(out, []string{"I"}, 60, 10)
	if err != nil {
		t.Fatalf("terminal plot failed: %v", err)
	}
	if !strings.Contains(chart, "multivariant_sir") {
		t.Error("caption missing")
	}
	if len(strings.Split(chart, "\n")) < 10 {
		t.Error("chart should span the requested height")
	}
}
