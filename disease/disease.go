// Package disease ships the concrete compartmental model variants as
// pluggable data for the engine: a multivariant SIR, a stochastic
// discrete SIR, and an age-stratified SEIRD with hospital compartments.
// The engine knows nothing about disease biology; everything specific
// to a disease lives here.
package disease

import (
	"fmt"
	"sort"

	"github.com/epimath/go-epimod/model"
)

// Variant bundles a model definition with runnable defaults so callers
// (CLI, scenario files) can build a model by name.
type Variant struct {
	Name        string
	Description string

	// Discrete marks variants whose transition returns next-state
	// values and must be stepped in discrete mode.
	Discrete bool

	Definition     model.Definition
	DefaultParams  func() model.Params
	DefaultInitial func() map[string]model.StateArray
}

// Build constructs a model from the variant's defaults. Nil opts get
// the variant's natural mode (discrete or continuous).
func (v Variant) Build(opts *model.Options) (*model.Model, error) {
	if opts == nil {
		opts = &model.Options{}
	}
	opts.Discrete = opts.Discrete || v.Discrete
	return model.New(v.Definition, v.DefaultInitial(), v.DefaultParams(), opts)
}

var registry = map[string]Variant{}

// Register adds a variant to the registry. Registering the same name
// twice panics; variant names are package-level constants.
func Register(v Variant) {
	if _, dup := registry[v.Name]; dup {
		panic(fmt.Sprintf("disease: variant %q registered twice", v.Name))
	}
	registry[v.Name] = v
}

// Get looks up a registered variant by name.
func Get(name string) (Variant, bool) {
	v, ok := registry[name]
	return v, ok
}

// Names returns the registered variant names in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// matVec computes m * v for a square contact matrix and a per-stratum
// vector.
func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i := range m {
		s := 0.0
		for j, mv := range m[i] {
			s += mv * v[j]
		}
		out[i] = s
	}
	return out
}
