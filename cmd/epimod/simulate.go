package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/epimath/go-epimod/export"
	"github.com/epimath/go-epimod/plotter"
	"github.com/epimath/go-epimod/results"
	"github.com/epimath/go-epimod/scenario"
	"github.com/epimath/go-epimod/store"
)

func simulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	output := fs.String("output", "", "Output file for results JSON")
	csvPath := fs.String("csv", "", "Also export the series as CSV")
	jsonlPath := fs.String("jsonl", "", "Also export the series as JSON Lines")
	dbPath := fs.String("db", "", "SQLite database to archive the run in")
	chart := fs.Bool("chart", false, "Print an ASCII chart of the run")
	analyze := fs.Bool("analyze", true, "Compute automatic analysis")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epimod simulate <scenario.yaml> [options]

Run the scenario and write the packaged results.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Run and write results
  epimod simulate scenario.yaml --output results.json

  # Archive into a run database and preview in the terminal
  epimod simulate scenario.yaml --db runs.db --chart
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("scenario file required")
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

	start := time.Now()
	out, err := m.Simulate(span, opts)
	elapsed := time.Since(start)

	builder := results.NewBuilder()
	if opts.Method != nil {
		builder.WithSolver(opts.Method, opts.Solver)
	}
	if err != nil {
		res := builder.WithStatus("error", err).WithComputeTime(elapsed).Build()
		if *output != "" {
			results.WriteJSON(res, *output)
		}
		return fmt.Errorf("simulate: %w", err)
	}

	builder.WithOutput(out).WithComputeTime(elapsed)
	res := builder.Build()
	if *analyze {
		res.Analysis = results.Analyze(res)
	}

	if *output != "" {
		if err := results.WriteJSON(res, *output); err != nil {
			return err
		}
	}
	if *csvPath != "" {
		if err := export.SaveCSV(*csvPath, out, nil); err != nil {
			return err
		}
	}
	if *jsonlPath != "" {
		if err := export.SaveJSONL(*jsonlPath, out, nil); err != nil {
			return err
		}
	}
	if *dbPath != "" {
		db, err := store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(context.Background(), res); err != nil {
			return err
		}
	}
	if *chart {
		text, err := plotter.Terminal(out, nil, 0, 0)
		if err != nil {
			return err
		}
		fmt.Println(text)
	}

	fmt.Fprintf(os.Stderr, "Simulation complete\n")
	fmt.Fprintf(os.Stderr, "  Run: %s\n", res.Metadata.RunID)
	fmt.Fprintf(os.Stderr, "  Time: %.1f -> %.1f\n", span.Start, span.End)
	fmt.Fprintf(os.Stderr, "  Points: %d\n", res.Series.Summary.Points)
	fmt.Fprintf(os.Stderr, "  Compute time: %.3fs\n", elapsed.Seconds())
	if *output != "" {
		fmt.Fprintf(os.Stderr, "  Output: %s\n", *output)
	}
	return nil
}
