package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
)

// buildPanel creates a single-asset panel with the given per-day returns
// applied to the SPY price and the given VIX path
func buildPanel(t *testing.T, rets []float64, vix []float64) *market.Panel {
	t.Helper()
	require.Equal(t, len(rets), len(vix))

	n := len(rets)
	dates := make([]time.Time, n)
	prices := make([][]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		dates[i] = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		price *= 1 + rets[i]
		prices[i] = []float64{price}
	}
	panel, err := market.NewPanel([]string{"SPY"}, dates, prices, vix)
	require.NoError(t, err)
	return panel
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSnapshot_InsufficientHistory(t *testing.T) {
	panel := buildPanel(t, constant(40, 0.001), constant(40, 15))
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	_, err = engine.Snapshot(engine.MinHistory() - 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrDataInsufficient))

	_, err = engine.Snapshot(engine.MinHistory() - 1)
	require.NoError(t, err)
}

func TestSnapshot_ConstantSeries(t *testing.T) {
	panel := buildPanel(t, constant(60, 0.0), constant(60, 20))
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	snap, err := engine.Snapshot(50)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, snap.VIXLevel, 1e-12)
	assert.InDelta(t, 0.0, snap.VIXSlope5, 1e-12)
	assert.InDelta(t, 0.0, snap.VIXSlope20, 1e-12)
	assert.InDelta(t, 0.0, snap.VIXZScore20, 1e-12) // Zero std sanitized to 0
	assert.InDelta(t, 0.0, snap.RealizedVol, 1e-12)
	assert.InDelta(t, 1.0, snap.VIXPercentile, 1e-12)
}

func TestSnapshot_VIXSlopeAndZScore(t *testing.T) {
	n := 60
	vix := make([]float64, n)
	for i := range vix {
		vix[i] = 10 + 0.5*float64(i) // Steady climb
	}
	panel := buildPanel(t, constant(n, 0.001), vix)
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	snap, err := engine.Snapshot(50)
	require.NoError(t, err)

	wantSlope5 := vix[50]/vix[45] - 1
	assert.InDelta(t, wantSlope5, snap.VIXSlope5, 1e-12)
	assert.Greater(t, snap.VIXZScore20, 1.0, "latest value of a rising series sits above its window mean")
	assert.InDelta(t, 1.0, snap.VIXPercentile, 1e-12)
}

func TestSnapshot_RealizedVolAnnualization(t *testing.T) {
	// Alternating +1%/-1% returns have a known log-return std
	n := 60
	rets := make([]float64, n)
	for i := range rets {
		if i%2 == 0 {
			rets[i] = 0.01
		} else {
			rets[i] = -0.01
		}
	}
	panel := buildPanel(t, rets, constant(n, 15))
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	snap, err := engine.Snapshot(50)
	require.NoError(t, err)
	assert.Greater(t, snap.RealizedVol, 0.10)
	assert.Less(t, snap.RealizedVol, 0.25)
}

func TestSnapshot_NoLookAhead(t *testing.T) {
	rets := constant(80, 0.002)
	vix := constant(80, 18)
	panel := buildPanel(t, rets, vix)
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	before, err := engine.Snapshot(40)
	require.NoError(t, err)

	// Perturb strictly after day 40
	perturbedRets := append([]float64(nil), rets...)
	perturbedVix := append([]float64(nil), vix...)
	for i := 41; i < len(perturbedRets); i++ {
		perturbedRets[i] = -0.05
		perturbedVix[i] = 80
	}
	panel2 := buildPanel(t, perturbedRets, perturbedVix)
	engine2, err := NewEngine(panel2, "SPY")
	require.NoError(t, err)

	after, err := engine2.Snapshot(40)
	require.NoError(t, err)
	assert.Equal(t, *before, *after, "future data must not change day-40 snapshot")
}

func TestSnapshot_SanitizesNonFinite(t *testing.T) {
	n := 60
	rets := constant(n, 0.0)
	vix := constant(n, 0.0) // Zero VIX forces division edge cases
	panel := buildPanel(t, rets, vix)
	engine, err := NewEngine(panel, "SPY")
	require.NoError(t, err)

	snap, err := engine.Snapshot(50)
	require.NoError(t, err)
	for i, v := range snap.Vector() {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "feature %s must be finite", FeatureNames[i])
	}
}
