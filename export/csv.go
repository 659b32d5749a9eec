// Package export writes simulation output to interchange formats for
// downstream analysis: CSV tables and JSON Lines streams.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/epimath/go-epimod/model"
)

// CSVOptions configures the CSV layout.
type CSVOptions struct {
	States    []string // States to export (default: all)
	Dates     bool     // Include a date column when the run has a calendar
	Delimiter rune     // Field delimiter (default: comma)
}

// WriteCSV writes the strata-summed series as a CSV table: one row per
// time point, one column per state. Ensemble output adds a draw column
// and repeats the time grid per draw.
func WriteCSV(w io.Writer, out *model.Output, opts *CSVOptions) error {
	if opts == nil {
		opts = &CSVOptions{Dates: true}
	}
	states := opts.States
	if states == nil {
		states = out.States()
	}

	writer := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	withDates := opts.Dates && len(out.Dates) == len(out.Time)
	draws := out.Draws
	if draws == 0 {
		draws = 1
	}

	header := make([]string, 0, len(states)+3)
	header = append(header, "time")
	if withDates {
		header = append(header, "date")
	}
	if out.Draws > 0 {
		header = append(header, "draw")
	}
	header = append(header, states...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	series := make(map[string][]float64, len(states))
	for d := 0; d < draws; d++ {
		for _, state := range states {
			s, err := out.Total(state, d)
			if err != nil {
				return err
			}
			series[state] = s
		}
		for ti, t := range out.Time {
			row := make([]string, 0, len(header))
			row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
			if withDates {
				row = append(row, out.Dates[ti])
			}
			if out.Draws > 0 {
				row = append(row, strconv.Itoa(d))
			}
			for _, state := range states {
				row = append(row, strconv.FormatFloat(series[state][ti], 'g', -1, 64))
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the output to a CSV file.
func SaveCSV(path string, out *model.Output, opts *CSVOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, out, opts)
}
