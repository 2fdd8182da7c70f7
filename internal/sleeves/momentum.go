// Package sleeves holds the four independent signal generators. Each sleeve
// maps trailing price history to a per-asset target weight vector for one
// day and never consults regime state.
package sleeves

import (
	"math"
	"sort"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// zClip bounds cross-sectional z-scores against outlier returns
const zClip = 5.0

// Momentum is the cross-sectional momentum sleeve: long the top fraction of
// the universe by trailing-return z-score, short the bottom fraction,
// equal-weighted within each leg, dollar-neutral.
type Momentum struct {
	cfg   config.MomentumConfig
	panel *market.Panel
}

// NewMomentum creates the cross-sectional momentum sleeve
func NewMomentum(cfg config.MomentumConfig, panel *market.Panel) *Momentum {
	return &Momentum{cfg: cfg, panel: panel}
}

// ZScores returns the clipped cross-sectional z-scores of lookback returns
// for day t. Assets without enough history or with missing prices get NaN.
func (m *Momentum) ZScores(t int) []float64 {
	n := m.panel.NumAssets()
	rets := make([]float64, n)
	valid := make([]float64, 0, n)

	for a := 0; a < n; a++ {
		rets[a] = math.NaN()
		if t < m.cfg.Lookback {
			continue
		}
		past := m.panel.Close(t-m.cfg.Lookback, a)
		cur := m.panel.Close(t, a)
		if math.IsNaN(past) || math.IsNaN(cur) || past == 0 {
			continue
		}
		rets[a] = cur/past - 1.0
		valid = append(valid, rets[a])
	}

	zs := make([]float64, n)
	for a := 0; a < n; a++ {
		zs[a] = math.NaN()
		if math.IsNaN(rets[a]) || len(valid) < 2 {
			continue
		}
		z := stats.ZScore(rets[a], valid)
		if math.IsNaN(z) {
			z = 0
		}
		zs[a] = stats.Clip(z, -zClip, zClip)
	}
	return zs
}

// Weights builds the dollar-neutral book for day t: +0.5 gross across the
// long leg, -0.5 across the short leg.
func (m *Momentum) Weights(t int) []float64 {
	n := m.panel.NumAssets()
	weights := make([]float64, n)

	zs := m.ZScores(t)
	type ranked struct {
		asset int
		z     float64
	}
	candidates := make([]ranked, 0, n)
	for a, z := range zs {
		if !math.IsNaN(z) {
			candidates = append(candidates, ranked{asset: a, z: z})
		}
	}
	if len(candidates) < 2 {
		return weights
	}

	// No cross-sectional dispersion means no signal
	spread := false
	for _, c := range candidates[1:] {
		if c.z != candidates[0].z {
			spread = true
			break
		}
	}
	if !spread {
		return weights
	}

	// Stable ordering: ties broken by asset index for determinism
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].z != candidates[j].z {
			return candidates[i].z > candidates[j].z
		}
		return candidates[i].asset < candidates[j].asset
	})

	k := int(m.cfg.TopBottom * float64(len(candidates)))
	if k < 1 {
		k = 1
	}
	if 2*k > len(candidates) {
		k = len(candidates) / 2
	}
	if k < 1 {
		return weights
	}

	longWeight := 0.5 / float64(k)
	shortWeight := -0.5 / float64(k)
	for i := 0; i < k; i++ {
		weights[candidates[i].asset] = longWeight
		weights[candidates[len(candidates)-1-i].asset] = shortWeight
	}
	return weights
}
