package model

import "fmt"

// StateArray holds one model state stratified over the model's axes,
// stored flat in row-major order. For a model with a single axis the
// Data slice is simply the per-stratum vector.
type StateArray struct {
	Shape []int
	Data  []float64
}

// Zeros returns a zero-filled state array of the given shape.
func Zeros(shape []int) StateArray {
	size := 1
	for _, n := range shape {
		size *= n
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return StateArray{Shape: s, Data: make([]float64, size)}
}

// Row builds a single-axis state array from explicit values.
func Row(values ...float64) StateArray {
	data := make([]float64, len(values))
	copy(data, values)
	return StateArray{Shape: []int{len(values)}, Data: data}
}

// Grid builds a state array from flat row-major data and a shape.
func Grid(data []float64, shape ...int) StateArray {
	size := 1
	for _, n := range shape {
		size *= n
	}
	if len(data) != size {
		panic(fmt.Sprintf("model: grid data has %d values, shape wants %d", len(data), size))
	}
	d := make([]float64, len(data))
	copy(d, data)
	s := make([]int, len(shape))
	copy(s, shape)
	return StateArray{Shape: s, Data: d}
}

// Size returns the total number of elements.
func (a StateArray) Size() int {
	return len(a.Data)
}

// At returns the element at the given multi-dimensional index.
func (a StateArray) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set assigns the element at the given multi-dimensional index.
func (a *StateArray) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = v
}

func (a StateArray) offset(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("model: index has %d dims, array has %d", len(idx), len(a.Shape)))
	}
	off := 0
	for i, j := range idx {
		if j < 0 || j >= a.Shape[i] {
			panic(fmt.Sprintf("model: index %d out of range for axis %d (size %d)", j, i, a.Shape[i]))
		}
		off = off*a.Shape[i] + j
	}
	return off
}

// Clone returns a deep copy of the array.
func (a StateArray) Clone() StateArray {
	c := Zeros(a.Shape)
	copy(c.Data, a.Data)
	return c
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// flattenStates concatenates the state arrays in declared order into a
// single vector for the integrator. The inverse is expandStates; the
// round trip is exact.
func flattenStates(states []StateArray) []float64 {
	total := 0
	for _, s := range states {
		total += s.Size()
	}
	flat := make([]float64, 0, total)
	for _, s := range states {
		flat = append(flat, s.Data...)
	}
	return flat
}

// expandStates splits a flat vector back into per-state arrays of the
// given shape. The returned arrays alias segments of y; callers must
// not retain them across steps.
func expandStates(y []float64, n int, shape []int) []StateArray {
	size := 1
	for _, d := range shape {
		size *= d
	}
	states := make([]StateArray, n)
	for i := 0; i < n; i++ {
		states[i] = StateArray{Shape: shape, Data: y[i*size : (i+1)*size]}
	}
	return states
}
