package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/epimath/go-epimod/disease"
)

func models(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show states and parameters per variant")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: epimod models [options]\n\nList the registered disease model variants.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range disease.Names() {
		v, _ := disease.Get(name)
		mode := "continuous"
		if v.Discrete {
			mode = "discrete"
		}
		fmt.Printf("%-20s  %-10s  %s\n", name, mode, v.Description)
		if *verbose {
			fmt.Printf("  states:     %s\n", strings.Join(v.Definition.States, ", "))
			fmt.Printf("  parameters: %s\n", strings.Join(v.Definition.Parameters, ", "))
			if len(v.Definition.Stratification) > 0 {
				fmt.Printf("  axes:       %s\n", strings.Join(v.Definition.Stratification, ", "))
			}
		}
	}
	return nil
}
