package disease

import (
	"github.com/epimath/go-epimod/model"
)

// ContactMatrices holds per-location contact matrices so policies can
// reweight them independently (closing schools zeroes the school
// matrix, telework discounts the work matrix, and so on).
type ContactMatrices struct {
	Home    model.Matrix
	Work    model.Matrix
	Schools model.Matrix
	Rest    model.Matrix // transport, leisure, other
}

// Total returns the unweighted sum of all locations: the baseline
// contact matrix before any measures.
func (cm ContactMatrices) Total() model.Matrix {
	return cm.Weighted(1, 1, 1, 1)
}

// Weighted combines the per-location matrices with prevention weights
// in [0,1]; a weight is the fraction of pre-pandemic contacts that
// remain at that location under the policy.
func (cm ContactMatrices) Weighted(home, work, schools, rest float64) model.Matrix {
	n := len(cm.Home)
	out := make(model.Matrix, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = home*cm.Home[i][j] + work*cm.Work[i][j] +
				schools*cm.Schools[i][j] + rest*cm.Rest[i][j]
		}
		out[i] = row
	}
	return out
}

// LockdownPolicy builds a time-dependent contact matrix for a single
// lockdown: full contacts before the start day, then a linear
// compliance ramp from the baseline to the policy matrix, beginning
// tau days after the start and completing over l further days.
// Grounded in behavioral-change models where compliance lags the
// announcement and builds up gradually.
func LockdownPolicy(cm ContactMatrices, start, tau, l float64, home, work, schools, rest float64) model.TimeFunc {
	baseline := cm.Total()
	policy := cm.Weighted(home, work, schools, rest)
	return model.Absolute(nil, func(st model.SimTime, _ map[string]model.Value) model.Value {
		if st.T < start {
			return baseline
		}
		return model.Ramp(baseline, policy, st.T, tau, l, start)
	})
}

// ReopeningPolicy chains a lockdown with a staged reopening: the
// policy matrix holds until the release day, then ramps back toward
// the relaxed weights over the same compliance dynamics.
func ReopeningPolicy(cm ContactMatrices, start, release, tau, l float64,
	lockHome, lockWork, lockSchools, lockRest float64,
	openHome, openWork, openSchools, openRest float64) model.TimeFunc {

	baseline := cm.Total()
	locked := cm.Weighted(lockHome, lockWork, lockSchools, lockRest)
	relaxed := cm.Weighted(openHome, openWork, openSchools, openRest)

	return model.Absolute(nil, func(st model.SimTime, _ map[string]model.Value) model.Value {
		switch {
		case st.T < start:
			return baseline
		case st.T < release:
			return model.Ramp(baseline, locked, st.T, tau, l, start)
		default:
			return model.Ramp(locked, relaxed, st.T, tau, l, release)
		}
	})
}

// SplitContacts is a convenience for tests and examples: it splits a
// total matrix into equal quarters per location.
func SplitContacts(total model.Matrix) ContactMatrices {
	n := len(total)
	quarter := func() model.Matrix {
		m := make(model.Matrix, n)
		for i := 0; i < n; i++ {
			row := make([]float64, n)
			for j := 0; j < n; j++ {
				row[j] = total[i][j] / 4
			}
			m[i] = row
		}
		return m
	}
	return ContactMatrices{Home: quarter(), Work: quarter(), Schools: quarter(), Rest: quarter()}
}
