package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/epimath/go-epimod/calib"
	"github.com/epimath/go-epimod/results"
	"github.com/epimath/go-epimod/scenario"
	"github.com/epimath/go-epimod/store"
)

func calibrate(args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	dataFile := fs.String("data", "", "CSV file of observed series (required)")
	paramList := fs.String("params", "", "Comma-separated parameters to fit (required)")
	method := fs.String("method", "nelder-mead", "Optimizer: nelder-mead or coordinate-descent")
	iters := fs.Int("iters", 500, "Maximum optimizer iterations")
	dbPath := fs.String("db", "", "SQLite database to archive the fitted run in")
	samples := fs.Int("samples", 0, "Draw this many posterior-style samples around the fit")
	verbose := fs.Bool("verbose", false, "Print optimizer progress")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epimod calibrate <scenario.yaml> [options]

Fit scalar model parameters to observed time series. The CSV header
names the time column first, then one column per observed state.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  epimod calibrate scenario.yaml --data hospital.csv --params beta
  epimod calibrate scenario.yaml --data cases.csv --params beta,gamma --method coordinate-descent
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("scenario file required")
	}
	if *dataFile == "" || *paramList == "" {
		fs.Usage()
		return fmt.Errorf("--data and --params are required")
	}

	sc, err := scenario.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	m, span, err := sc.Build()
	if err != nil {
		return err
	}

	data, err := calib.LoadCSV(*dataFile, m.Calendar())
	if err != nil {
		return err
	}

	names := strings.Split(*paramList, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	opts := calib.DefaultFitOptions()
	opts.Method = *method
	opts.MaxIters = *iters
	opts.Verbose = *verbose
	if simOpts, err := sc.SimOptions(); err == nil && simOpts.Method != nil {
		opts.SolverMethod = simOpts.Method
		opts.SolverOptions = simOpts.Solver
	}

	prob := &calib.Problem{
		Model:     m,
		Data:      data,
		Names:     names,
		Span:      span,
		Objective: calib.SSE(nil),
	}

	fit, err := calib.Fit(prob, opts)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Calibration complete\n")
	fmt.Fprintf(os.Stderr, "  Converged: %v after %d iterations\n", fit.Converged, fit.Iterations)
	fmt.Fprintf(os.Stderr, "  Loss: %.4g -> %.4g\n", fit.InitialLoss, fit.FinalLoss)
	for _, name := range fit.Names {
		fmt.Printf("%s = %.6g\n", name, fit.ByName[name])
	}

	if *dbPath == "" {
		return nil
	}

	// Archive the fitted trajectory, plus sample chains when requested.
	out, err := m.Simulate(span, nil)
	if err != nil {
		return err
	}
	res := results.NewBuilder().WithOutput(out).Build()

	db, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.SaveRun(ctx, res); err != nil {
		return err
	}
	if *samples > 0 {
		chains := calib.GaussianSamples(fit, 0.1, *samples, 42)
		if err := db.SaveSamples(ctx, res.Metadata.RunID, chains); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "  Archived run: %s\n", res.Metadata.RunID)
	return nil
}
