package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/epimath/go-epimod/plotter"
	"github.com/epimath/go-epimod/scenario"
)

func plot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	output := fs.String("output", "", "Output SVG file (required)")
	stateList := fs.String("states", "", "Comma-separated states to plot (default: all)")
	title := fs.String("title", "", "Plot title (default: model name)")
	width := fs.Float64("width", 900, "Plot width in pixels")
	height := fs.Float64("height", 500, "Plot height in pixels")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epimod plot <scenario.yaml> [options]

Run the scenario and render the strata-summed state series as SVG.
Ensemble scenarios get shaded credible bands.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("scenario file required")
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("--output required")
	}

	sc, err := scenario.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	m, span, err := sc.Build()
	if err != nil {
		return err
	}
	opts, err := sc.SimOptions()
	if err != nil {
		return err
	}

	out, err := m.Simulate(span, opts)
	if err != nil {
		return err
	}

	var states []string
	if *stateList != "" {
		states = strings.Split(*stateList, ",")
		for i := range states {
			states[i] = strings.TrimSpace(states[i])
		}
	}
	name := *title
	if name == "" {
		name = out.ModelName
	}

	svg, _, err := plotter.PlotOutput(out, states, *width, *height, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Plot written to %s\n", *output)
	return nil
}
