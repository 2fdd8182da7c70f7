package sleeves

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// PairState is the per-pair position state machine
type PairState int

const (
	Flat PairState = iota
	LongSpread  // Long leg A, short leg B
	ShortSpread // Short leg A, long leg B
)

func (s PairState) String() string {
	switch s {
	case LongSpread:
		return "long_spread"
	case ShortSpread:
		return "short_spread"
	default:
		return "flat"
	}
}

// Pairs is the spread mean-reversion sleeve. Each designated pair carries an
// explicit entry/exit state: once entered, the position persists until the
// exit or stop condition triggers, independent of new entry signals. Advance
// must be called once per day in date order.
type Pairs struct {
	cfg    config.PairsConfig
	panel  *market.Panel
	states map[string]PairState

	legIdx map[string][2]int
}

// NewPairs creates the pairs sleeve with all pairs flat
func NewPairs(cfg config.PairsConfig, panel *market.Panel) (*Pairs, error) {
	legIdx := make(map[string][2]int, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		a, okA := panel.AssetIndex(p.LegA)
		b, okB := panel.AssetIndex(p.LegB)
		if !okA || !okB {
			return nil, fmt.Errorf("pair %s references assets outside the panel universe", p.Key())
		}
		legIdx[p.Key()] = [2]int{a, b}
	}
	return &Pairs{
		cfg:    cfg,
		panel:  panel,
		states: make(map[string]PairState, len(cfg.Pairs)),
		legIdx: legIdx,
	}, nil
}

// States returns a copy of the current per-pair states
func (p *Pairs) States() map[string]PairState {
	out := make(map[string]PairState, len(p.states))
	for k, v := range p.states {
		out[k] = v
	}
	return out
}

// Advance moves every pair's state machine through day t and returns the
// sleeve's weight vector. Market-neutral: ±LegWeight per leg.
func (p *Pairs) Advance(t int) []float64 {
	weights := make([]float64, p.panel.NumAssets())

	for _, pair := range p.cfg.Pairs {
		key := pair.Key()
		idx := p.legIdx[key]
		state := p.states[key]

		z, ok := p.spreadZ(t, idx[0], idx[1])
		if !ok {
			// No signal: hold the current position, flat pairs stay flat
			p.applyLegs(weights, idx, state)
			continue
		}

		switch state {
		case Flat:
			if z > p.cfg.EntryZ {
				state = ShortSpread
			} else if z < -p.cfg.EntryZ {
				state = LongSpread
			}
		case LongSpread, ShortSpread:
			if math.Abs(z) < p.cfg.ExitZ {
				state = Flat
			} else if math.Abs(z) > p.cfg.StopZ {
				log.Debug().Str("pair", key).Float64("z", z).Msg("Pair stop-loss triggered")
				state = Flat
			}
		}

		p.states[key] = state
		p.applyLegs(weights, idx, state)
	}

	return weights
}

// spreadZ computes the standardized spread z-score for day t using the
// rolling regression beta of leg A on leg B
func (p *Pairs) spreadZ(t, aIdx, bIdx int) (float64, bool) {
	w := p.cfg.BetaWindow
	if t < w {
		return 0, false
	}

	as := make([]float64, 0, w)
	bs := make([]float64, 0, w)
	for i := t - w + 1; i <= t; i++ {
		av := p.panel.Close(i, aIdx)
		bv := p.panel.Close(i, bIdx)
		if math.IsNaN(av) || math.IsNaN(bv) {
			return 0, false
		}
		as = append(as, av)
		bs = append(bs, bv)
	}

	beta := stats.Beta(as, bs)
	if math.IsNaN(beta) {
		return 0, false
	}

	spreads := make([]float64, len(as))
	for i := range as {
		spreads[i] = as[i] - beta*bs[i]
	}

	sd := stats.Std(spreads)
	if math.IsNaN(sd) || sd == 0 {
		return 0, false
	}
	return (spreads[len(spreads)-1] - stats.Mean(spreads)) / sd, true
}

func (p *Pairs) applyLegs(weights []float64, idx [2]int, state PairState) {
	switch state {
	case LongSpread:
		weights[idx[0]] += p.cfg.LegWeight
		weights[idx[1]] -= p.cfg.LegWeight
	case ShortSpread:
		weights[idx[0]] -= p.cfg.LegWeight
		weights[idx[1]] += p.cfg.LegWeight
	}
}
