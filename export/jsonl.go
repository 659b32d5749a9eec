package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/epimath/go-epimod/model"
)

// Record is one JSONL line: the strata-summed state values at one time
// point of one draw.
type Record struct {
	Time   float64            `json:"time"`
	Date   string             `json:"date,omitempty"`
	Draw   int                `json:"draw,omitempty"`
	States map[string]float64 `json:"states"`
}

// WriteJSONL streams the output as JSON Lines, one record per time
// point (per draw for ensembles).
func WriteJSONL(w io.Writer, out *model.Output, states []string) error {
	if states == nil {
		states = out.States()
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	withDates := len(out.Dates) == len(out.Time)
	draws := out.Draws
	if draws == 0 {
		draws = 1
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
			rec := Record{Time: t, States: make(map[string]float64, len(states))}
			if withDates {
				rec.Date = out.Dates[ti]
			}
			if out.Draws > 0 {
				rec.Draw = d
			}
			for _, state := range states {
				rec.States[state] = series[state][ti]
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
		}
	}
	return bw.Flush()
}

// SaveJSONL writes the output to a JSONL file.
func SaveJSONL(path string, out *model.Output, states []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	return WriteJSONL(f, out, states)
}
