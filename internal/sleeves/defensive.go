package sleeves

import (
	"fmt"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
)

// Defensive is the static long-only allocation sleeve (70% long-duration
// bonds / 30% gold by default). Its magnitude scales only with the capital
// fraction the blender assigns to it.
type Defensive struct {
	weights []float64
}

// NewDefensive builds the normalized static allocation over instruments
// present in the panel
func NewDefensive(cfg config.DefensiveConfig, panel *market.Panel) (*Defensive, error) {
	weights := make([]float64, panel.NumAssets())
	total := 0.0
	for asset, w := range cfg.Allocation {
		if w <= 0 {
			continue
		}
		idx, ok := panel.AssetIndex(asset)
		if !ok {
			return nil, fmt.Errorf("defensive instrument %q not in panel universe", asset)
		}
		weights[idx] = w
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("defensive allocation has no positive weight on available instruments")
	}
	for a := range weights {
		weights[a] /= total
	}
	return &Defensive{weights: weights}, nil
}

// Weights returns the static allocation vector. The same vector backs every
// call; callers must not mutate it.
func (d *Defensive) Weights() []float64 {
	return d.weights
}
