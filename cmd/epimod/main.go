package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "simulate":
		if err := simulate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "calibrate":
		if err := calibrate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "plot":
		if err := plot(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "runs":
		if err := runs(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "models":
		if err := models(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("epimod version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`epimod - compartmental epidemic modeling and calibration tool

Usage:
  epimod <command> [options]

Commands:
  simulate   Run a scenario and write results
  calibrate  Fit model parameters to observed data
  plot       Render a scenario run as an SVG chart
  runs       List, export, or delete stored runs
  models     List the registered disease model variants
  help       Show this help message
  version    Show version information

Examples:
  # Run a scenario and archive the results
  epimod simulate scenario.yaml --output results.json --db runs.db

  # Fit beta and gamma to hospital admission data
  epimod calibrate scenario.yaml --data cases.csv --params beta,gamma

  # Render the epidemic curves
  epimod plot scenario.yaml --states S,I,R --output curves.svg

For command-specific help, run:
  epimod <command> --help`)
}
