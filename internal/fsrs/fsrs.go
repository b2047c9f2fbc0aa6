package fsrs

import (
	"fmt"
	"math"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// Forgetting curve constants. FACTOR is chosen so that Retrievability(S, S)
// is exactly 0.9: the stability of a card is the number of days until
// recall probability drops to 90%.
const (
	Decay  = -0.5
	Factor = 19.0 / 81.0

	MinDifficulty = 1.0
	MaxDifficulty = 10.0

	// StabilityFloor is the smallest stability a lapse can produce.
	StabilityFloor = 0.1
)

// intervalEpsilon absorbs the rounding error of r^(1/DECAY)-1 so that an
// exact whole-day interval is not floored one day short.
const intervalEpsilon = 1e-9

// Retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
// It is 1 at t = 0 and strictly decreasing in t. A non-positive stability
// carries no memory to decay, so it reports 1.
func Retrievability(stability, elapsedDays float64) float64 {
	if stability <= 0 {
		return 1
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	return math.Pow(1+Factor*elapsedDays/stability, Decay)
}

// IntervalForTarget inverts Retrievability: it returns the whole number of
// days after which recall probability falls to targetRetention.
// I(S, r) = floor(S / FACTOR * (r^(1/DECAY) - 1)), clamped to [1, maxInterval].
func IntervalForTarget(stability, targetRetention float64, maxInterval int) int {
	ivl := stability / Factor * (math.Pow(targetRetention, 1/Decay) - 1)
	days := int(math.Floor(ivl + intervalEpsilon))
	if days < 1 {
		days = 1
	}
	if days > maxInterval {
		days = maxInterval
	}
	return days
}

// InitialStability returns S0(G) = w[G-1], floored at StabilityFloor.
func (p Params) InitialStability(r domain.Rating) float64 {
	return math.Max(p.W[r-1], StabilityFloor)
}

// InitialDifficulty returns D0(G) = w4 - (G - 3) * w5, clamped to [1, 10].
func (p Params) InitialDifficulty(r domain.Rating) float64 {
	return clampDifficulty(p.W[4] - float64(r-3)*p.W[5])
}

// NextDifficulty moves difficulty by -w5 per rating step above Good and
// mean-reverts toward D0(Good):
// D' = w6 * w4 + (1 - w6) * (D - w5 * (G - 3))
func (p Params) NextDifficulty(difficulty float64, r domain.Rating) float64 {
	moved := difficulty - p.W[5]*float64(r-3)
	return clampDifficulty(p.W[6]*p.W[4] + (1-p.W[6])*moved)
}

// NextRecallStability applies the core FSRS formula for a successful review.
// S' = S * (1 + e^w8 * (11 - D) * S^(-w9) * (e^(w10 * (1 - R)) - 1) * hard * easy)
func (p Params) NextRecallStability(stability, difficulty, retrievability float64, r domain.Rating) float64 {
	hardPenalty := 1.0
	easyBonus := 1.0
	switch r {
	case domain.Hard:
		hardPenalty = p.W[15]
	case domain.Easy:
		easyBonus = p.W[16]
	}

	growth := math.Exp(p.W[8]) *
		(11 - difficulty) *
		math.Pow(stability, -p.W[9]) *
		(math.Exp(p.W[10]*(1-retrievability)) - 1) *
		hardPenalty *
		easyBonus

	return stability * (1 + growth)
}

// NextLapseStability computes stability after an Again rating.
// S' = w11 * D^(-w12) * ((S + 1)^w13 - 1) * e^(w14 * (1 - R)),
// floored at StabilityFloor and never above the prior stability.
func (p Params) NextLapseStability(stability, difficulty, retrievability float64) float64 {
	s := p.W[11] *
		math.Pow(difficulty, -p.W[12]) *
		(math.Pow(stability+1, p.W[13]) - 1) *
		math.Exp(p.W[14]*(1-retrievability))
	return math.Min(stability, math.Max(s, StabilityFloor))
}

// Interval is IntervalForTarget with the retention target and cap taken from p.
func (p Params) Interval(stability float64) int {
	return IntervalForTarget(stability, p.TargetRetention, p.MaxInterval)
}

// CheckFinite returns ErrNonFiniteComputation when v is NaN or ±Inf.
func CheckFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s = %v", ErrNonFiniteComputation, name, v)
	}
	return nil
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, MinDifficulty), MaxDifficulty)
}
