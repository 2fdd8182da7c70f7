package sleeves

import (
	"math"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// TimeSeries is the multi-horizon trend overlay. For each lookback it takes
// the sign of cumulative log returns per asset, demeans across the
// universe, and normalizes by gross, then averages the horizons. Net-zero
// only when the underlying signs are symmetric; this is not enforced.
type TimeSeries struct {
	cfg   config.TimeSeriesConfig
	panel *market.Panel
}

// NewTimeSeries creates the trend overlay sleeve
func NewTimeSeries(cfg config.TimeSeriesConfig, panel *market.Panel) *TimeSeries {
	return &TimeSeries{cfg: cfg, panel: panel}
}

// Weights returns the averaged multi-horizon overlay for day t
func (ts *TimeSeries) Weights(t int) []float64 {
	n := ts.panel.NumAssets()
	combined := make([]float64, n)
	horizons := 0

	for _, lb := range ts.cfg.Lookbacks {
		component := ts.horizonWeights(t, lb)
		if component == nil {
			continue
		}
		for a := range combined {
			combined[a] += component[a]
		}
		horizons++
	}

	if horizons == 0 {
		return combined
	}
	for a := range combined {
		combined[a] /= float64(horizons)
	}
	return combined
}

// horizonWeights builds one horizon's demeaned, gross-normalized sign
// vector. Returns nil when the lookback exceeds available history.
func (ts *TimeSeries) horizonWeights(t, lookback int) []float64 {
	if t < lookback {
		return nil
	}
	n := ts.panel.NumAssets()

	signs := make([]float64, n)
	valid := make([]int, 0, n)
	for a := 0; a < n; a++ {
		past := ts.panel.Close(t-lookback, a)
		cur := ts.panel.Close(t, a)
		if math.IsNaN(past) || math.IsNaN(cur) || past <= 0 || cur <= 0 {
			signs[a] = math.NaN()
			continue
		}
		s := stats.Sign(math.Log(cur) - math.Log(past))
		if s == 0 {
			signs[a] = math.NaN()
			continue
		}
		signs[a] = s
		valid = append(valid, a)
	}
	if len(valid) == 0 {
		return nil
	}

	mean := 0.0
	for _, a := range valid {
		mean += signs[a]
	}
	mean /= float64(len(valid))

	weights := make([]float64, n)
	gross := 0.0
	for _, a := range valid {
		weights[a] = signs[a] - mean
		gross += math.Abs(weights[a])
	}
	if gross == 0 {
		return make([]float64, n)
	}
	for _, a := range valid {
		weights[a] /= gross
	}
	return weights
}
