package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pair identifies the two legs of a spread trade
type Pair struct {
	LegA string `yaml:"leg_a"`
	LegB string `yaml:"leg_b"`
}

// Key returns a stable identifier for the pair
func (p Pair) Key() string {
	return p.LegA + "/" + p.LegB
}

// RegimeConfig holds the classifier thresholds and smoothing parameters
type RegimeConfig struct {
	TrainWindow      int     `yaml:"train_window"`       // Default: 252
	EMASpan          int     `yaml:"ema_span"`           // Default: 5
	HighThreshold    float64 `yaml:"high_threshold"`     // Default: 0.60
	LowThreshold     float64 `yaml:"low_threshold"`      // Default: 0.25
	VolLabelQuantile float64 `yaml:"vol_label_quantile"` // Default: 0.75
}

// MomentumConfig holds the cross-sectional momentum sleeve parameters
type MomentumConfig struct {
	Lookback  int     `yaml:"lookback"`   // Default: 126
	TopBottom float64 `yaml:"top_bottom"` // Default: 0.30
}

// PairsConfig holds the spread mean-reversion sleeve parameters
type PairsConfig struct {
	Pairs      []Pair  `yaml:"pairs"`
	BetaWindow int     `yaml:"beta_window"` // Default: 63
	EntryZ     float64 `yaml:"entry_z"`     // Default: 1.5
	ExitZ      float64 `yaml:"exit_z"`      // Default: 0.25
	StopZ      float64 `yaml:"stop_z"`      // Default: 3.0
	LegWeight  float64 `yaml:"leg_weight"`  // Default: 0.5
}

// TimeSeriesConfig holds the trend overlay parameters
type TimeSeriesConfig struct {
	Lookbacks []int `yaml:"lookbacks"` // Default: [21, 63, 126]
}

// DefensiveConfig holds the static defensive allocation
type DefensiveConfig struct {
	Allocation map[string]float64 `yaml:"allocation"` // Default: TLT 0.7, GLD 0.3
}

// RiskConfig holds the volatility-targeting overlay parameters
type RiskConfig struct {
	TargetVol         float64 `yaml:"target_vol"`          // Default: 0.06 annualized
	VolWindow         int     `yaml:"vol_window"`          // Default: 20
	LeverageCap       float64 `yaml:"leverage_cap"`        // Default: 2.7
	ThrottleDrawdown  float64 `yaml:"throttle_drawdown"`   // Default: 0.05
	ThrottleFloor     float64 `yaml:"throttle_floor"`      // Default: 0.30
	CrashDrawdown     float64 `yaml:"crash_drawdown"`      // Default: 0.12
	CooldownDays      int     `yaml:"cooldown_days"`       // Default: 5
	TransactionCostBp float64 `yaml:"transaction_cost_bp"` // Default: 10
}

// Config is the full backtest configuration surface
type Config struct {
	Universe      []string         `yaml:"universe"`
	VolatilityID  string           `yaml:"volatility_id"`  // Default: "^VIX"
	ProxyAsset    string           `yaml:"proxy_asset"`    // Realized-vol reference, default "SPY"
	Start         string           `yaml:"start"`          // YYYY-MM-DD, empty = panel start
	End           string           `yaml:"end"`            // YYYY-MM-DD, empty = panel end
	Regime        RegimeConfig     `yaml:"regime"`
	Momentum      MomentumConfig   `yaml:"momentum"`
	Pairs         PairsConfig      `yaml:"pairs"`
	TimeSeries    TimeSeriesConfig `yaml:"timeseries"`
	Defensive     DefensiveConfig  `yaml:"defensive"`
	Risk          RiskConfig       `yaml:"risk"`
	OutputDir     string           `yaml:"output_dir"`
	DevSampleDays int              `yaml:"dev_sample_days"` // Reporting split, 0 = no split
}

// DefaultConfig returns the default backtest configuration
func DefaultConfig() *Config {
	return &Config{
		Universe: []string{
			"AAPL", "MSFT", "AMZN", "NVDA",
			"SPY", "QQQ", "IWM", "XLE", "XLK", "USO",
			"TLT", "GLD",
		},
		VolatilityID: "^VIX",
		ProxyAsset:   "SPY",
		Regime: RegimeConfig{
			TrainWindow:      252,
			EMASpan:          5,
			HighThreshold:    0.60,
			LowThreshold:     0.25,
			VolLabelQuantile: 0.75,
		},
		Momentum: MomentumConfig{
			Lookback:  126,
			TopBottom: 0.30,
		},
		Pairs: PairsConfig{
			Pairs: []Pair{
				{LegA: "SPY", LegB: "QQQ"},
				{LegA: "XLE", LegB: "USO"},
			},
			BetaWindow: 63,
			EntryZ:     1.5,
			ExitZ:      0.25,
			StopZ:      3.0,
			LegWeight:  0.5,
		},
		TimeSeries: TimeSeriesConfig{
			Lookbacks: []int{21, 63, 126},
		},
		Defensive: DefensiveConfig{
			Allocation: map[string]float64{
				"TLT": 0.7,
				"GLD": 0.3,
			},
		},
		Risk: RiskConfig{
			TargetVol:         0.06,
			VolWindow:         20,
			LeverageCap:       2.7,
			ThrottleDrawdown:  0.05,
			ThrottleFloor:     0.30,
			CrashDrawdown:     0.12,
			CooldownDays:      5,
			TransactionCostBp: 10,
		},
		OutputDir:     "./artifacts/backtest",
		DevSampleDays: 600,
	}
}

// LoadFromFile loads a configuration from a YAML file, applying defaults for
// unset sections and validating the result
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every parameter before any simulation day runs. A failure
// here is fatal for the run.
func (c *Config) Validate() error {
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe must contain at least one asset")
	}
	universe := make(map[string]bool, len(c.Universe))
	for _, asset := range c.Universe {
		if asset == "" {
			return fmt.Errorf("universe contains an empty asset identifier")
		}
		if universe[asset] {
			return fmt.Errorf("universe contains duplicate asset %q", asset)
		}
		universe[asset] = true
	}
	if c.VolatilityID == "" {
		return fmt.Errorf("volatility_id must be set")
	}
	if !universe[c.ProxyAsset] {
		return fmt.Errorf("proxy_asset %q is not in the universe", c.ProxyAsset)
	}

	if c.Regime.TrainWindow <= 0 {
		return fmt.Errorf("regime.train_window must be positive: got %d", c.Regime.TrainWindow)
	}
	if c.Regime.EMASpan <= 0 {
		return fmt.Errorf("regime.ema_span must be positive: got %d", c.Regime.EMASpan)
	}
	if c.Regime.LowThreshold >= c.Regime.HighThreshold {
		return fmt.Errorf("regime thresholds out of order: low %.3f >= high %.3f",
			c.Regime.LowThreshold, c.Regime.HighThreshold)
	}
	if c.Regime.LowThreshold <= 0 || c.Regime.HighThreshold >= 1 {
		return fmt.Errorf("regime thresholds must lie strictly inside (0,1)")
	}
	if c.Regime.VolLabelQuantile <= 0 || c.Regime.VolLabelQuantile >= 1 {
		return fmt.Errorf("regime.vol_label_quantile must lie in (0,1): got %f", c.Regime.VolLabelQuantile)
	}

	if c.Momentum.Lookback <= 0 {
		return fmt.Errorf("momentum.lookback must be positive: got %d", c.Momentum.Lookback)
	}
	if c.Momentum.TopBottom <= 0 || c.Momentum.TopBottom > 0.5 {
		return fmt.Errorf("momentum.top_bottom must lie in (0, 0.5]: got %f", c.Momentum.TopBottom)
	}

	if c.Pairs.BetaWindow <= 1 {
		return fmt.Errorf("pairs.beta_window must exceed 1: got %d", c.Pairs.BetaWindow)
	}
	if !(c.Pairs.ExitZ < c.Pairs.EntryZ && c.Pairs.EntryZ < c.Pairs.StopZ) {
		return fmt.Errorf("pairs thresholds out of order: want exit < entry < stop, got %.2f/%.2f/%.2f",
			c.Pairs.ExitZ, c.Pairs.EntryZ, c.Pairs.StopZ)
	}
	if c.Pairs.LegWeight <= 0 {
		return fmt.Errorf("pairs.leg_weight must be positive: got %f", c.Pairs.LegWeight)
	}
	for _, p := range c.Pairs.Pairs {
		if !universe[p.LegA] || !universe[p.LegB] {
			return fmt.Errorf("pair %s references assets outside the universe", p.Key())
		}
		if p.LegA == p.LegB {
			return fmt.Errorf("pair %s has identical legs", p.Key())
		}
	}

	if len(c.TimeSeries.Lookbacks) == 0 {
		return fmt.Errorf("timeseries.lookbacks must not be empty")
	}
	for _, lb := range c.TimeSeries.Lookbacks {
		if lb <= 0 {
			return fmt.Errorf("timeseries lookback must be positive: got %d", lb)
		}
	}

	defTotal := 0.0
	for asset, weight := range c.Defensive.Allocation {
		if !universe[asset] {
			return fmt.Errorf("defensive allocation references asset %q outside the universe", asset)
		}
		if weight < 0 {
			return fmt.Errorf("defensive allocation for %q is negative: %f", asset, weight)
		}
		defTotal += weight
	}
	if defTotal <= 0 {
		return fmt.Errorf("defensive allocation must have positive total weight")
	}

	if c.Risk.TargetVol <= 0 {
		return fmt.Errorf("risk.target_vol must be positive: got %f", c.Risk.TargetVol)
	}
	if c.Risk.VolWindow <= 1 {
		return fmt.Errorf("risk.vol_window must exceed 1: got %d", c.Risk.VolWindow)
	}
	if c.Risk.LeverageCap <= 0 {
		return fmt.Errorf("risk.leverage_cap must be positive: got %f", c.Risk.LeverageCap)
	}
	if c.Risk.ThrottleDrawdown <= 0 || c.Risk.CrashDrawdown <= c.Risk.ThrottleDrawdown {
		return fmt.Errorf("drawdown thresholds out of order: want 0 < throttle %.3f < crash %.3f",
			c.Risk.ThrottleDrawdown, c.Risk.CrashDrawdown)
	}
	if c.Risk.ThrottleFloor <= 0 || c.Risk.ThrottleFloor > 1 {
		return fmt.Errorf("risk.throttle_floor must lie in (0,1]: got %f", c.Risk.ThrottleFloor)
	}
	if c.Risk.CooldownDays <= 0 {
		return fmt.Errorf("risk.cooldown_days must be positive: got %d", c.Risk.CooldownDays)
	}
	if c.Risk.TransactionCostBp < 0 {
		return fmt.Errorf("risk.transaction_cost_bp must not be negative: got %f", c.Risk.TransactionCostBp)
	}

	if c.Start != "" {
		if _, err := time.Parse("2006-01-02", c.Start); err != nil {
			return fmt.Errorf("invalid start date %q: %w", c.Start, err)
		}
	}
	if c.End != "" {
		if _, err := time.Parse("2006-01-02", c.End); err != nil {
			return fmt.Errorf("invalid end date %q: %w", c.End, err)
		}
	}
	if c.Start != "" && c.End != "" && c.Start >= c.End {
		return fmt.Errorf("start date %s is not before end date %s", c.Start, c.End)
	}
	if c.DevSampleDays < 0 {
		return fmt.Errorf("dev_sample_days must not be negative: got %d", c.DevSampleDays)
	}

	return nil
}

// TransactionCostRate returns the one-way cost as a fraction (10 bp = 0.001)
func (c *Config) TransactionCostRate() float64 {
	return c.Risk.TransactionCostBp / 10000.0
}

// MaxLookback returns the longest trailing window any sleeve or indicator
// requires before the first tradable day
func (c *Config) MaxLookback() int {
	max := c.Momentum.Lookback + 1
	if c.Pairs.BetaWindow+1 > max {
		max = c.Pairs.BetaWindow + 1
	}
	for _, lb := range c.TimeSeries.Lookbacks {
		if lb+1 > max {
			max = lb + 1
		}
	}
	if c.Risk.VolWindow+1 > max {
		max = c.Risk.VolWindow + 1
	}
	return max
}

// EMAAlpha returns the smoothing coefficient 2/(span+1)
func (c *RegimeConfig) EMAAlpha() float64 {
	return 2.0 / (float64(c.EMASpan) + 1.0)
}
