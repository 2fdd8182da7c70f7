package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 252, cfg.Regime.TrainWindow)
	assert.Equal(t, 5, cfg.Regime.EMASpan)
	assert.InDelta(t, 2.0/6.0, cfg.Regime.EMAAlpha(), 1e-12)
	assert.InDelta(t, 0.001, cfg.TransactionCostRate(), 1e-12)
}

func TestValidate_RejectsBadThresholdOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regime.LowThreshold = 0.7 // Above the high threshold
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds out of order")
}

func TestValidate_RejectsPairsThresholdOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pairs.StopZ = 1.0 // Below entry
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit < entry < stop")
}

func TestValidate_RejectsNegativeWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Momentum.Lookback = -10
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Regime.TrainWindow = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownPairLeg(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pairs.Pairs = append(cfg.Pairs.Pairs, Pair{LegA: "SPY", LegB: "NOPE"})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the universe")
}

func TestValidate_RejectsDefensiveOutsideUniverse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defensive.Allocation["BONDS"] = 0.5
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsProxyOutsideUniverse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProxyAsset = "VTI"
	require.Error(t, cfg.Validate())
}

func TestLoadFromFile_AppliesOverridesOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategy.yaml")
	yaml := `
risk:
  target_vol: 0.08
  vol_window: 20
  leverage_cap: 2.7
  throttle_drawdown: 0.05
  throttle_floor: 0.30
  crash_drawdown: 0.12
  cooldown_days: 5
  transaction_cost_bp: 10
regime:
  train_window: 252
  ema_span: 5
  high_threshold: 0.65
  low_threshold: 0.20
  vol_label_quantile: 0.75
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.08, cfg.Risk.TargetVol, 1e-12)
	assert.InDelta(t, 0.65, cfg.Regime.HighThreshold, 1e-12)
	// Untouched sections keep defaults
	assert.Equal(t, 126, cfg.Momentum.Lookback)
}

func TestLoadFromFile_InvalidConfigIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("momentum:\n  lookback: -1\n"), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestMaxLookback_CoversLongestWindow(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 127, cfg.MaxLookback()) // Momentum 126 + 1
}
