package indicators

import (
	"fmt"
	"math"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// Window lengths used by the rolling features. The percentile window is the
// longest history the engine will look back, never forward.
const (
	SlopeShortWindow  = 5
	SlopeLongWindow   = 20
	ZScoreWindow      = 20
	RealizedVolWindow = 20
	VolSlopeLag       = 5
	PercentileWindow  = 252

	// TradingDaysPerYear annualizes daily volatility
	TradingDaysPerYear = 252
)

// FeatureNames lists the snapshot features in vector order
var FeatureNames = []string{
	"vix_level",
	"vix_slope_5",
	"vix_slope_20",
	"vix_zscore_20",
	"vix_percentile",
	"realized_vol_spy",
	"realized_vol_slope",
	"vix_realized_ratio",
}

// Snapshot holds the indicator values for a single day, derived only from
// the panel up to and including that day
type Snapshot struct {
	Day              int
	VIXLevel         float64
	VIXSlope5        float64
	VIXSlope20       float64
	VIXZScore20      float64
	VIXPercentile    float64
	RealizedVol      float64
	RealizedVolSlope float64
	VIXRealizedRatio float64
}

// Vector returns the features in FeatureNames order
func (s *Snapshot) Vector() []float64 {
	return []float64{
		s.VIXLevel,
		s.VIXSlope5,
		s.VIXSlope20,
		s.VIXZScore20,
		s.VIXPercentile,
		s.RealizedVol,
		s.RealizedVolSlope,
		s.VIXRealizedRatio,
	}
}

// Engine computes indicator snapshots from the panel. It holds no mutable
// state; every call reads only trailing windows.
type Engine struct {
	panel    *market.Panel
	proxyIdx int
}

// NewEngine creates an indicator engine. proxyAsset is the instrument whose
// realized volatility anchors the vol features (SPY in the default universe).
func NewEngine(panel *market.Panel, proxyAsset string) (*Engine, error) {
	idx, ok := panel.AssetIndex(proxyAsset)
	if !ok {
		return nil, fmt.Errorf("proxy asset %q not in panel universe", proxyAsset)
	}
	return &Engine{panel: panel, proxyIdx: idx}, nil
}

// MinHistory returns the number of trailing days required before the first
// valid snapshot
func (e *Engine) MinHistory() int {
	// Realized vol needs RealizedVolWindow log returns; its slope needs the
	// same again VolSlopeLag days earlier.
	return RealizedVolWindow + VolSlopeLag + 1
}

// Snapshot computes the indicator snapshot for day t. Returns
// market.ErrDataInsufficient when fewer trailing days exist than the
// features require.
func (e *Engine) Snapshot(t int) (*Snapshot, error) {
	if t < e.MinHistory()-1 {
		return nil, fmt.Errorf("day %d: %w (need %d trailing days)", t, market.ErrDataInsufficient, e.MinHistory())
	}
	if t >= e.panel.Len() {
		return nil, fmt.Errorf("day %d out of panel range %d", t, e.panel.Len())
	}

	vix := e.panel.VIX
	level := vix[t]

	rv, err := e.realizedVol(t)
	if err != nil {
		return nil, err
	}
	rvLagged, err := e.realizedVol(t - VolSlopeLag)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Day:              t,
		VIXLevel:         level,
		VIXSlope5:        pctChange(vix, t, SlopeShortWindow),
		VIXSlope20:       pctChange(vix, t, SlopeLongWindow),
		VIXZScore20:      rollingZ(vix, t, ZScoreWindow),
		VIXPercentile:    trailingPercentile(vix, t, PercentileWindow),
		RealizedVol:      rv,
		RealizedVolSlope: rv - rvLagged,
	}

	if rv > 0 {
		snap.VIXRealizedRatio = level / (rv * 100.0)
	}

	sanitize(snap)
	return snap, nil
}

// realizedVol returns annualized std of the proxy asset's trailing log
// returns ending at day t
func (e *Engine) realizedVol(t int) (float64, error) {
	if t < RealizedVolWindow {
		return 0, fmt.Errorf("day %d: %w for realized vol", t, market.ErrDataInsufficient)
	}
	logRets := make([]float64, 0, RealizedVolWindow)
	for i := t - RealizedVolWindow + 1; i <= t; i++ {
		prev := e.panel.Close(i-1, e.proxyIdx)
		cur := e.panel.Close(i, e.proxyIdx)
		if math.IsNaN(prev) || math.IsNaN(cur) || prev <= 0 || cur <= 0 {
			continue
		}
		logRets = append(logRets, math.Log(cur/prev))
	}
	if len(logRets) < 2 {
		return 0, fmt.Errorf("day %d: %w for realized vol", t, market.ErrDataInsufficient)
	}
	return stats.Std(logRets) * math.Sqrt(TradingDaysPerYear), nil
}

// pctChange returns the fractional change of xs[t] versus lag days back
func pctChange(xs []float64, t, lag int) float64 {
	if t < lag || xs[t-lag] == 0 {
		return 0
	}
	return xs[t]/xs[t-lag] - 1.0
}

// rollingZ standardizes xs[t] against its trailing window ending at t
func rollingZ(xs []float64, t, window int) float64 {
	if t < window-1 {
		return 0
	}
	z := stats.ZScore(xs[t], xs[t-window+1:t+1])
	if math.IsNaN(z) {
		return 0
	}
	return z
}

// trailingPercentile ranks xs[t] within its trailing window, capped at
// `window` days so early history never leaks forward-looking ranks
func trailingPercentile(xs []float64, t, window int) float64 {
	from := t - window + 1
	if from < 0 {
		from = 0
	}
	return stats.RankPct(xs[t], xs[from:t+1])
}

// sanitize replaces non-finite features with 0, matching the engine's
// contract that a snapshot is always usable by the classifier
func sanitize(s *Snapshot) {
	fields := []*float64{
		&s.VIXLevel, &s.VIXSlope5, &s.VIXSlope20, &s.VIXZScore20,
		&s.VIXPercentile, &s.RealizedVol, &s.RealizedVolSlope, &s.VIXRealizedRatio,
	}
	for _, f := range fields {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}
