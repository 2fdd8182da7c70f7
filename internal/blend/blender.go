// Package blend combines the four sleeve weight vectors into one target
// portfolio using regime-dependent budget fractions.
package blend

import (
	"fmt"
	"math"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/regime"
)

// BudgetSumTolerance is the floating tolerance on the sum-to-one invariant
const BudgetSumTolerance = 1e-9

// confidenceFloor keeps some exposure on during regime transitions
const confidenceFloor = 0.2

// Budget is the capital fraction assigned to each sleeve for one day.
// Fractions always sum to 1.
type Budget struct {
	Momentum   float64 `json:"momentum"`
	Pairs      float64 `json:"pairs"`
	TimeSeries float64 `json:"timeseries"`
	Defensive  float64 `json:"defensive"`
}

// Sum returns the total budget fraction
func (b Budget) Sum() float64 {
	return b.Momentum + b.Pairs + b.TimeSeries + b.Defensive
}

// Validate enforces the sum-to-one invariant
func (b Budget) Validate() error {
	if math.Abs(b.Sum()-1.0) > BudgetSumTolerance {
		return fmt.Errorf("sleeve budget sums to %.12f, expected 1", b.Sum())
	}
	if b.Momentum < 0 || b.Pairs < 0 || b.TimeSeries < 0 || b.Defensive < 0 {
		return fmt.Errorf("sleeve budget has negative fraction: %+v", b)
	}
	return nil
}

// baseBudgets are the regime-keyed starting fractions before confidence
// modulation
var baseBudgets = map[regime.Label]Budget{
	regime.Low:    {Momentum: 0.55, Pairs: 0.15, TimeSeries: 0.20, Defensive: 0.10},
	regime.Medium: {Momentum: 0.30, Pairs: 0.20, TimeSeries: 0.25, Defensive: 0.25},
	regime.High:   {Momentum: 0.05, Pairs: 0.20, TimeSeries: 0.15, Defensive: 0.60},
}

// Mix produces the day's sleeve budget from the regime label, the smoothed
// high-vol probability, and the confidence score. Defensive grows with
// uncertainty and with p_high; momentum decays with p_high and is zeroed
// outright in the high-vol regime. The result is renormalized to sum
// exactly to 1; a degenerate total collapses to all-defensive.
func Mix(label regime.Label, pHigh, confidence float64) Budget {
	base, ok := baseBudgets[label]
	if !ok {
		base = baseBudgets[regime.Medium]
	}
	mix := base

	uncertainty := 1.0 - confidence
	mix.Defensive += 0.25*uncertainty + 0.35*pHigh
	mix.Momentum *= math.Max(0, 1.0-0.7*pHigh)

	switch label {
	case regime.Medium:
		mix.Defensive += 0.1
		mix.Momentum *= 0.5 + 0.5*confidence
		mix.Pairs *= 0.7 + 0.3*pHigh
	case regime.High:
		mix.Momentum = 0
		mix.Pairs *= 0.8 + 0.4*pHigh
		mix.TimeSeries *= 0.6 + 0.4*confidence
	case regime.Low:
		mix.Defensive += 0.05 * uncertainty
		mix.Pairs *= 0.5 + 0.5*pHigh
		mix.TimeSeries *= 0.8 + 0.2*confidence
	}

	mix.Momentum = math.Max(0, mix.Momentum)
	mix.Pairs = math.Max(0, mix.Pairs)
	mix.TimeSeries = math.Max(0, mix.TimeSeries)
	mix.Defensive = math.Max(0, mix.Defensive)

	total := mix.Sum()
	if total <= 0 {
		return Budget{Defensive: 1.0}
	}
	mix.Momentum /= total
	mix.Pairs /= total
	mix.TimeSeries /= total
	mix.Defensive /= total
	return mix
}

// Blend combines the four sleeve vectors under the given budget, then
// applies the transition scaler max(confidence, floor) to damp exposure
// while the regime estimate is uncertain.
func Blend(budget Budget, momentum, pairs, timeseries, defensive []float64, confidence float64) []float64 {
	n := len(momentum)
	scaler := math.Max(confidence, confidenceFloor)

	out := make([]float64, n)
	for a := 0; a < n; a++ {
		combined := budget.Momentum*momentum[a] +
			budget.Pairs*pairs[a] +
			budget.TimeSeries*timeseries[a] +
			budget.Defensive*defensive[a]
		out[a] = scaler * combined
	}
	return out
}
