package disease

import (
	"math"
	"math/rand"

	"github.com/epimath/go-epimod/model"
)

// MultivariantSIR is a minimal SIR model with transient two-variant
// dynamics: alpha tracks the fraction of an alternative variant with
// infectivity gain Kinf, injected into the population on a configurable
// day. Setting the injection ratio to zero reduces it to a plain
// single-variant SIR.
//
// States: S (susceptible), I (infectious), R (removed), alpha (variant
// fraction). The contact matrix Nc is the stratification axis.
func MultivariantSIR() Variant {
	def := model.Definition{
		Name:           "multivariant_sir",
		States:         []string{"S", "I", "R", "alpha"},
		Parameters:     []string{"beta", "gamma", "injection_day", "injection_ratio", "K_inf"},
		Stratification: []string{"Nc"},
		Args:           []string{"t", "S", "I", "R", "alpha", "beta", "gamma", "injection_day", "injection_ratio", "K_inf", "Nc"},
		Transition:     multivariantSIRTransition,
	}
	return Variant{
		Name:        "multivariant_sir",
		Description: "SIR with transient two-variant dynamics",
		Definition:  def,
		DefaultParams: func() model.Params {
			return model.Params{
				"beta":            model.Scalar(0.3),
				"gamma":           model.Scalar(1.0 / 7.0),
				"injection_day":   model.Scalar(60),
				"injection_ratio": model.Scalar(0.01),
				"K_inf":           model.Scalar(1.5),
				"Nc":              uniformContacts(3, 4.0),
			}
		},
		DefaultInitial: func() map[string]model.StateArray {
			return map[string]model.StateArray{
				"S": model.Row(1e6, 1e6, 1e6),
				"I": model.Row(10, 10, 10),
			}
		},
	}
}

func multivariantSIRTransition(t float64, states []model.StateArray, p model.ParamSet) ([]model.StateArray, error) {
	S, I, R, alpha := states[0], states[1], states[2], states[3]
	beta := p.Scalar("beta")
	gamma := p.Scalar("gamma")
	injectionDay := p.Scalar("injection_day")
	injectionRatio := p.Scalar("injection_ratio")
	kInf := p.Scalar("K_inf")
	Nc := p.Matrix("Nc")

	n := S.Shape[0]
	prevalence := make([]float64, n)
	for i := 0; i < n; i++ {
		T := S.Data[i] + I.Data[i] + R.Data[i]
		if T == 0 {
			return nil, model.Consistencyf(t, "total population of stratum %d is zero", i)
		}
		prevalence[i] = I.Data[i] / T
	}
	mix := matVec(Nc, prevalence)

	// Infection pressure of the resident and the alternative variant.
	ipOld := make([]float64, n)
	ipNew := make([]float64, n)
	allZero := true
	for i := 0; i < n; i++ {
		ipOld[i] = (1 - alpha.Data[i]) * beta * mix[i]
		ipNew[i] = alpha.Data[i] * kInf * beta * mix[i]
		if ipOld[i] != 0 || ipNew[i] != 0 {
			allZero = false
		}
	}

	dS, dI, dR, dAlpha := model.Zeros(S.Shape), model.Zeros(S.Shape), model.Zeros(S.Shape), model.Zeros(S.Shape)
	alphaSum := 0.0
	for i := 0; i < n; i++ {
		ip := ipOld[i] + ipNew[i]
		dS.Data[i] = -ip * S.Data[i]
		dI.Data[i] = ip*S.Data[i] - gamma*I.Data[i]
		dR.Data[i] = gamma * I.Data[i]
		if !allZero {
			dAlpha.Data[i] = ipNew[i]/ip - alpha.Data[i]
		}
		alphaSum += alpha.Data[i]
	}

	// Seed the alternative variant once, on the injection day.
	if t >= injectionDay && alphaSum == 0 {
		for i := 0; i < n; i++ {
			dAlpha.Data[i] += injectionRatio
		}
	}

	return []model.StateArray{dS, dI, dR, dAlpha}, nil
}

// StochasticSIR is a discrete-time SIR where per-step transitions are
// binomial draws: each susceptible is infected with probability
// 1-exp(-beta * contact-weighted prevalence) and each infectious
// recovers with probability 1-exp(-gamma). Several draws are averaged
// per step, so larger averaging counts converge to the deterministic
// limit. Must run in discrete mode.
func StochasticSIR(seed int64) Variant {
	rng := rand.New(rand.NewSource(seed))
	def := model.Definition{
		Name:           "stochastic_sir",
		States:         []string{"S", "I", "R"},
		Parameters:     []string{"beta", "gamma"},
		Stratification: []string{"Nc"},
		Args:           []string{"t", "S", "I", "R", "beta", "gamma", "Nc"},
		Transition: func(t float64, states []model.StateArray, p model.ParamSet) ([]model.StateArray, error) {
			return stochasticSIRStep(rng, t, states, p)
		},
	}
	return Variant{
		Name:        "stochastic_sir",
		Description: "discrete SIR with binomial transition draws",
		Discrete:    true,
		Definition:  def,
		DefaultParams: func() model.Params {
			return model.Params{
				"beta":  model.Scalar(0.05),
				"gamma": model.Scalar(1.0 / 7.0),
				"Nc":    uniformContacts(3, 4.0),
			}
		},
		DefaultInitial: func() map[string]model.StateArray {
			return map[string]model.StateArray{
				"S": model.Row(1000, 1000, 1000),
				"I": model.Row(5, 5, 5),
			}
		},
	}
}

// stepDraws is the number of binomial draws averaged per step.
const stepDraws = 5

func stochasticSIRStep(rng *rand.Rand, t float64, states []model.StateArray, p model.ParamSet) ([]model.StateArray, error) {
	S, I, R := states[0], states[1], states[2]
	beta := p.Scalar("beta")
	gamma := p.Scalar("gamma")
	Nc := p.Matrix("Nc")

	n := S.Shape[0]
	prevalence := make([]float64, n)
	for i := 0; i < n; i++ {
		T := S.Data[i] + I.Data[i] + R.Data[i]
		if T == 0 {
			return nil, model.Consistencyf(t, "total population of stratum %d is zero", i)
		}
		prevalence[i] = I.Data[i] / T
	}
	mix := matVec(Nc, prevalence)

	pRecover := 1 - math.Exp(-gamma)
	nextS, nextI, nextR := model.Zeros(S.Shape), model.Zeros(S.Shape), model.Zeros(S.Shape)
	for i := 0; i < n; i++ {
		pInfect := 1 - math.Exp(-beta*mix[i])
		infections := averagedBinomial(rng, S.Data[i], pInfect)
		recoveries := averagedBinomial(rng, I.Data[i], pRecover)

		nextS.Data[i] = S.Data[i] - infections
		nextI.Data[i] = I.Data[i] + infections - recoveries
		nextR.Data[i] = R.Data[i] + recoveries
		// Population counts cannot go negative.
		if nextS.Data[i] < 0 {
			nextS.Data[i] = 0
		}
		if nextI.Data[i] < 0 {
			nextI.Data[i] = 0
		}
		if nextR.Data[i] < 0 {
			nextR.Data[i] = 0
		}
	}
	return []model.StateArray{nextS, nextI, nextR}, nil
}

// averagedBinomial draws Binomial(n, p) stepDraws times and returns the
// rounded mean. Non-positive populations yield zero.
func averagedBinomial(rng *rand.Rand, population, prob float64) float64 {
	n := int(population)
	if n <= 0 || prob <= 0 {
		return 0
	}
	if prob >= 1 {
		return float64(n)
	}
	sum := 0.0
	for d := 0; d < stepDraws; d++ {
		k := 0
		for i := 0; i < n; i++ {
			if rng.Float64() < prob {
				k++
			}
		}
		sum += float64(k)
	}
	return math.Round(sum / stepDraws)
}

// uniformContacts builds an n-group contact matrix with the given
// average contact rate spread evenly.
func uniformContacts(n int, rate float64) model.Matrix {
	m := make(model.Matrix, n)
	for i := range m {
		row := make([]float64, n)
		for j := range row {
			row[j] = rate / float64(n)
		}
		m[i] = row
	}
	return m
}

func init() {
	Register(MultivariantSIR())
	Register(StochasticSIR(1))
}
