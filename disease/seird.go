package disease

import (
	"github.com/epimath/go-epimod/model"
)

// SEIRD is the extended age-stratified SEIRD model with hospital
// compartments. Beyond the classic susceptible/exposed/infectious
// chain it splits symptomatic cases into mild and hospitalized paths
// (general-ward cohort vs. intensive care, with a post-ICU recovery
// ward) and carries bookkeeping states for new admissions, discharges
// and hospital load, which are the series calibration fits against.
//
// States:
//
//	S        susceptible
//	E        exposed (latent)
//	I        pre-symptomatic infectious
//	A        asymptomatic infectious
//	M        mildly symptomatic
//	C        hospitalized in cohort (general ward)
//	C_icurec cohort stay after ICU recovery
//	ICU      intensive care
//	R        recovered
//	D        deceased
//	H_in     new hospitalizations (daily)
//	H_out    new discharges (daily)
//	H_tot    total hospital load
//	R_C      daily recoveries out of cohort
//	R_ICU    daily recoveries out of post-ICU ward
//
// Age-stratified parameters: s (relative susceptibility), a
// (asymptomatic fraction), h (hospitalization probability of a mild
// case), c (cohort vs. ICU split), m_C and m_ICU (mortalities).
func SEIRD() Variant {
	def := model.Definition{
		Name:   "covid19_seird",
		States: []string{"S", "E", "I", "A", "M", "C", "C_icurec", "ICU", "R", "D", "H_in", "H_out", "H_tot", "R_C", "R_ICU"},
		Parameters: []string{"beta", "sigma", "omega", "zeta", "da", "dm", "dc_R", "dc_D",
			"dICU_R", "dICU_D", "dICUrec", "dhospital"},
		StratifiedParameters: [][]string{{"s", "a", "h", "c", "m_C", "m_ICU"}},
		Stratification:       []string{"Nc"},
		Coordinates:          [][]string{ageGroupLabels()},
		Args: []string{"t", "S", "E", "I", "A", "M", "C", "C_icurec", "ICU", "R", "D", "H_in", "H_out", "H_tot", "R_C", "R_ICU",
			"beta", "sigma", "omega", "zeta", "da", "dm", "dc_R", "dc_D", "dICU_R", "dICU_D", "dICUrec", "dhospital",
			"s", "a", "h", "c", "m_C", "m_ICU",
			"Nc"},
		Transition: seirdTransition,
	}
	return Variant{
		Name:           "covid19_seird",
		Description:    "age-stratified SEIRD with hospital compartments",
		Definition:     def,
		DefaultParams:  DefaultSEIRDParams,
		DefaultInitial: DefaultSEIRDInitial,
	}
}

func seirdTransition(t float64, states []model.StateArray, p model.ParamSet) ([]model.StateArray, error) {
	S, E, I, A, M := states[0], states[1], states[2], states[3], states[4]
	C, Cicurec, ICU, R := states[5], states[6], states[7], states[8]
	Hin, Hout := states[10], states[11]
	RC, RICU := states[13], states[14]

	beta := p.Scalar("beta")
	sigma := p.Scalar("sigma")
	omega := p.Scalar("omega")
	zeta := p.Scalar("zeta")
	da := p.Scalar("da")
	dm := p.Scalar("dm")
	dcR := p.Scalar("dc_R")
	dcD := p.Scalar("dc_D")
	dICUR := p.Scalar("dICU_R")
	dICUD := p.Scalar("dICU_D")
	dICUrec := p.Scalar("dICUrec")
	dhospital := p.Scalar("dhospital")

	sus := p.Vector("s")
	a := p.Vector("a")
	h := p.Vector("h")
	c := p.Vector("c")
	mC := p.Vector("m_C")
	mICU := p.Vector("m_ICU")
	Nc := p.Matrix("Nc")

	n := S.Shape[0]

	// Contact-weighted prevalence of the infectious classes.
	prevalence := make([]float64, n)
	for i := 0; i < n; i++ {
		T := S.Data[i] + E.Data[i] + I.Data[i] + A.Data[i] + M.Data[i] +
			C.Data[i] + Cicurec.Data[i] + ICU.Data[i] + R.Data[i]
		if T == 0 {
			return nil, model.Consistencyf(t, "total population of age group %d is zero", i)
		}
		prevalence[i] = (I.Data[i] + A.Data[i]) / T
	}
	mix := matVec(Nc, prevalence)

	out := make([]model.StateArray, 15)
	for k := range out {
		out[k] = model.Zeros(S.Shape)
	}
	dS, dE, dI, dA, dM := out[0], out[1], out[2], out[3], out[4]
	dC, dCicurec, dICU, dR, dD := out[5], out[6], out[7], out[8], out[9]
	dHin, dHout, dHtot, dRC, dRICU := out[10], out[11], out[12], out[13], out[14]

	for i := 0; i < n; i++ {
		ip := beta * sus[i] * mix[i]

		admissions := M.Data[i] * h[i] / dhospital
		cohortRec := (1 - mC[i]) * C.Data[i] / dcR
		cohortDeath := mC[i] * C.Data[i] / dcD
		icuRec := (1 - mICU[i]) * ICU.Data[i] / dICUR
		icuDeath := mICU[i] * ICU.Data[i] / dICUD
		icurecOut := Cicurec.Data[i] / dICUrec

		dS.Data[i] = -ip*S.Data[i] + zeta*R.Data[i]
		dE.Data[i] = ip*S.Data[i] - E.Data[i]/sigma
		dI.Data[i] = E.Data[i]/sigma - I.Data[i]/omega
		dA.Data[i] = a[i]*I.Data[i]/omega - A.Data[i]/da
		dM.Data[i] = (1-a[i])*I.Data[i]/omega - M.Data[i]*(1-h[i])/dm - M.Data[i]*h[i]/dhospital

		dC.Data[i] = admissions*c[i] - cohortRec - cohortDeath
		dICU.Data[i] = admissions*(1-c[i]) - icuRec - icuDeath
		dCicurec.Data[i] = icuRec - icurecOut

		dR.Data[i] = A.Data[i]/da + (1-h[i])*M.Data[i]/dm + cohortRec + icurecOut - zeta*R.Data[i]
		dD.Data[i] = icuDeath + cohortDeath

		dHin.Data[i] = admissions - Hin.Data[i]
		dHout.Data[i] = cohortRec + cohortDeath + icuDeath + icurecOut - Hout.Data[i]
		dHtot.Data[i] = admissions - cohortRec - cohortDeath - icuDeath - icurecOut
		dRC.Data[i] = cohortRec - RC.Data[i]
		dRICU.Data[i] = icurecOut - RICU.Data[i]
	}

	return out, nil
}

// ageGroups is the number of 10-year age bands (0-9 ... 80+).
const ageGroups = 9

func ageGroupLabels() []string {
	return []string{"0-9", "10-19", "20-29", "30-39", "40-49", "50-59", "60-69", "70-79", "80+"}
}

// DefaultSEIRDParams returns literature-style parameter values for the
// nine 10-year age bands: a latent period of 5.2 days split into a
// non-infectious and a pre-symptomatic part, age-increasing
// hospitalization and mortality, and an all-location contact matrix
// with age-assortative mixing.
func DefaultSEIRDParams() model.Params {
	return model.Params{
		"beta":      model.Scalar(0.035),
		"sigma":     model.Scalar(3.2),
		"omega":     model.Scalar(2.0),
		"zeta":      model.Scalar(0.0),
		"da":        model.Scalar(7.0),
		"dm":        model.Scalar(7.0),
		"dc_R":      model.Scalar(7.0),
		"dc_D":      model.Scalar(6.5),
		"dICU_R":    model.Scalar(9.9),
		"dICU_D":    model.Scalar(6.9),
		"dICUrec":   model.Scalar(7.0),
		"dhospital": model.Scalar(5.0),

		"s": model.Vector{0.56, 0.56, 1.0, 1.0, 1.0, 1.0, 1.0, 1.2, 1.2},
		"a": model.Vector{0.85, 0.80, 0.70, 0.60, 0.50, 0.45, 0.40, 0.35, 0.30},
		"h": model.Vector{0.002, 0.002, 0.01, 0.03, 0.04, 0.08, 0.15, 0.25, 0.35},
		"c": model.Vector{0.95, 0.95, 0.90, 0.85, 0.80, 0.75, 0.70, 0.75, 0.90},
		"m_C":   model.Vector{0.0, 0.0, 0.01, 0.02, 0.03, 0.06, 0.12, 0.25, 0.40},
		"m_ICU": model.Vector{0.0, 0.0, 0.05, 0.10, 0.15, 0.25, 0.40, 0.55, 0.70},

		"Nc": DefaultContactMatrix(),
	}
}

// DefaultContactMatrix returns an age-assortative all-location contact
// matrix: strong diagonal mixing, a parent-child band, and declining
// contacts at older ages.
func DefaultContactMatrix() model.Matrix {
	m := make(model.Matrix, ageGroups)
	for i := range m {
		row := make([]float64, ageGroups)
		for j := range row {
			d := i - j
			if d < 0 {
				d = -d
			}
			switch {
			case d == 0:
				row[j] = 6.0
			case d == 1:
				row[j] = 2.5
			case d == 3: // parent-child band
				row[j] = 2.0
			default:
				row[j] = 0.8
			}
		}
		// Older groups have fewer contacts overall.
		if i >= 6 {
			for j := range row {
				row[j] *= 0.6
			}
		}
		m[i] = row
	}
	return m
}

// DefaultSEIRDInitial seeds one exposed person per age band into an
// age-pyramid population of about 11.5 million.
func DefaultSEIRDInitial() map[string]model.StateArray {
	pop := []float64{1.25e6, 1.3e6, 1.4e6, 1.5e6, 1.5e6, 1.6e6, 1.4e6, 1.0e6, 0.65e6}
	s := model.Row(pop...)
	e := model.Zeros([]int{ageGroups})
	for i := range e.Data {
		e.Data[i] = 1
	}
	return map[string]model.StateArray{"S": s, "E": e}
}

func init() {
	Register(SEIRD())
}
