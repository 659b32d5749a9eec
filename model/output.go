package model

import (
	"fmt"
	"sort"
)

// DataArray is one simulated state labeled with its dimensions: the
// stratification axes in declared order, then "time", then "draws" when
// the output holds an ensemble. Data is stored with each draw's
// (axes..., time) block laid out row-major and draws concatenated as
// consecutive blocks.
type DataArray struct {
	Dims  []string
	Shape []int
	Data  []float64
}

// At returns the element at the given multi-dimensional index, ordered
// as Dims.
func (a *DataArray) At(idx ...int) float64 {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("model: index has %d dims, array has %d (%v)", len(idx), len(a.Shape), a.Dims))
	}
	// The draws dimension is logically last but physically leading.
	phys := idx
	if a.Dims[len(a.Dims)-1] == "draws" {
		phys = make([]int, len(idx))
		phys[0] = idx[len(idx)-1]
		copy(phys[1:], idx[:len(idx)-1])
	}
	shape := a.Shape
	if a.Dims[len(a.Dims)-1] == "draws" {
		shape = make([]int, len(a.Shape))
		shape[0] = a.Shape[len(a.Shape)-1]
		copy(shape[1:], a.Shape[:len(a.Shape)-1])
	}
	off := 0
	for i, j := range phys {
		if j < 0 || j >= shape[i] {
			panic(fmt.Sprintf("model: index %d out of range for dim %q (size %d)", j, a.Dims[i], a.Shape[i]))
		}
		off = off*shape[i] + j
	}
	return a.Data[off]
}

// Output is the labeled result of a simulation: one DataArray per
// state, plus the shared coordinates.
type Output struct {
	ModelName  string
	StateNames []string
	Axes       []string
	AxisSizes  []int
	Coords     map[string][]string

	// Time holds the simulation-day output grid. When the model
	// carries a calendar, Dates holds the matching calendar dates.
	Time  []float64
	Dates []string

	// Draws is the ensemble size, or 0 for a single deterministic run.
	Draws int

	Data map[string]*DataArray

	// Params records the working parameter values of the last run.
	Params Params
}

// Get returns the data array for a named state, or nil.
func (o *Output) Get(state string) *DataArray {
	return o.Data[state]
}

// States returns the state names in declared order.
func (o *Output) States() []string {
	return append([]string(nil), o.StateNames...)
}

// Total sums a state over all stratification axes at every output time
// for one draw (pass 0 for deterministic output). This is the series
// calibration compares against aggregate incidence data.
func (o *Output) Total(state string, draw int) ([]float64, error) {
	a := o.Data[state]
	if a == nil {
		return nil, contractErrorf("output has no state %q", state)
	}
	nT := len(o.Time)
	strata := 1
	for _, n := range o.AxisSizes {
		strata *= n
	}
	if len(o.AxisSizes) == 0 {
		strata = 1
	}
	block := strata * nT
	if o.Draws > 0 {
		if draw < 0 || draw >= o.Draws {
			return nil, contractErrorf("draw %d out of range (output has %d draws)", draw, o.Draws)
		}
	} else if draw != 0 {
		return nil, contractErrorf("deterministic output has only draw 0")
	}

	out := make([]float64, nT)
	base := draw * block
	for s := 0; s < strata; s++ {
		for ti := 0; ti < nT; ti++ {
			out[ti] += a.Data[base+s*nT+ti]
		}
	}
	return out, nil
}

// assembleOutput packages resampled solver columns into labeled arrays.
// cols[i] is the flat state vector at grid point i.
func (m *Model) assembleOutput(grid []float64, cols [][]float64) *Output {
	nT := len(grid)
	strata := 1
	for _, n := range m.stratSizes {
		strata *= n
	}

	axes := append([]string(nil), m.def.Stratification...)
	dims := append(append([]string(nil), axes...), "time")
	shape := append(append([]int(nil), m.stratSizes...), nT)

	out := &Output{
		ModelName:  m.def.Name,
		StateNames: append([]string(nil), m.def.States...),
		Axes:       axes,
		AxisSizes:  append([]int(nil), m.stratSizes...),
		Coords:     make(map[string][]string, len(axes)),
		Time:       grid,
		Data:       make(map[string]*DataArray, len(m.def.States)),
	}
	for i, axis := range axes {
		out.Coords[axis] = m.coords[i]
	}
	if m.calendar != nil {
		out.Dates = make([]string, nT)
		for i, t := range grid {
			out.Dates[i] = m.calendar.TimeOf(t).Format(DateLayout)
		}
	}

	for si, name := range m.def.States {
		data := make([]float64, strata*nT)
		for ti := range grid {
			seg := cols[ti][si*strata : (si+1)*strata]
			for s, v := range seg {
				data[s*nT+ti] = v
			}
		}
		out.Data[name] = &DataArray{
			Dims:  append([]string(nil), dims...),
			Shape: append([]int(nil), shape...),
			Data:  data,
		}
	}
	return out
}

// appendDraw concatenates one per-draw output onto the ensemble.
func (o *Output) appendDraw(run *Output) {
	for _, name := range o.StateNames {
		o.Data[name].Data = append(o.Data[name].Data, run.Data[name].Data...)
	}
	o.Draws++
}

// finishDraws stamps the draws dimension onto every array.
func (o *Output) finishDraws() {
	for _, name := range o.StateNames {
		a := o.Data[name]
		a.Dims = append(a.Dims, "draws")
		a.Shape = append(a.Shape, o.Draws)
	}
}

// SortedStateNames returns the state names in lexical order, for
// deterministic iteration in serializers.
func (o *Output) SortedStateNames() []string {
	names := append([]string(nil), o.StateNames...)
	sort.Strings(names)
	return names
}
