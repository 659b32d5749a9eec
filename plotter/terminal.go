package plotter

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/epimath/go-epimod/model"
)

// Terminal renders strata-summed state series as an ASCII chart for a
// quick look without leaving the shell.
func Terminal(out *model.Output, states []string, width, height int) (string, error) {
	if states == nil {
		states = out.States()
	}
	if width <= 0 {
		width = 72
	}
	if height <= 0 {
		height = 14
	}

	data := make([][]float64, 0, len(states))
	for _, state := range states {
		series, err := out.Total(state, 0)
		if err != nil {
			return "", err
		}
		data = append(data, series)
	}

	caption := out.ModelName
	if len(out.Time) > 0 {
		caption = fmt.Sprintf("%s  t=[%g, %g]", out.ModelName, out.Time[0], out.Time[len(out.Time)-1])
	}

	chart := asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesLegends(states...),
	)
	return chart, nil
}
