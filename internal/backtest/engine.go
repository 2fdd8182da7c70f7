package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/blend"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/indicators"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/market"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/regime"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/risk"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/sleeves"
)

// Engine drives the daily simulation loop in strict date order. Each day
// depends on the previous day's risk state and equity, so there is no
// parallelism across days.
type Engine struct {
	cfg   *config.Config
	panel *market.Panel

	classifier *regime.Classifier
	momentum   *sleeves.Momentum
	pairs      *sleeves.Pairs
	timeseries *sleeves.TimeSeries
	defensive  *sleeves.Defensive
	overlay    *risk.Overlay

	collector *Collector
}

// NewEngine wires the full pipeline over a validated configuration and a
// loaded panel. Configuration errors are fatal here, before any simulation
// day runs.
func NewEngine(cfg *config.Config, panel *market.Panel, collector *Collector) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	indEngine, err := indicators.NewEngine(panel, cfg.ProxyAsset)
	if err != nil {
		return nil, fmt.Errorf("indicator engine setup failed: %w", err)
	}
	pairsSleeve, err := sleeves.NewPairs(cfg.Pairs, panel)
	if err != nil {
		return nil, fmt.Errorf("pairs sleeve setup failed: %w", err)
	}
	defSleeve, err := sleeves.NewDefensive(cfg.Defensive, panel)
	if err != nil {
		return nil, fmt.Errorf("defensive sleeve setup failed: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		panel:      panel,
		classifier: regime.NewClassifier(cfg.Regime, indEngine),
		momentum:   sleeves.NewMomentum(cfg.Momentum, panel),
		pairs:      pairsSleeve,
		timeseries: sleeves.NewTimeSeries(cfg.TimeSeries, panel),
		defensive:  defSleeve,
		overlay:    risk.NewOverlay(cfg.Risk, defSleeve.Weights()),
		collector:  collector,
	}, nil
}

// Run replays the pipeline across the panel and returns the completed
// ledger. The context is checked between days; cancellation aborts with the
// partial work discarded (a partial ledger is never presented as complete).
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	n := e.panel.Len()
	start := e.warmupDays()
	if start >= n {
		return nil, fmt.Errorf("panel has %d days but %d are required for warmup: %w",
			n, start, market.ErrDataInsufficient)
	}

	// Walk-forward classifier pass runs before the path-dependent risk pass;
	// it only reads backward-looking windows.
	states, err := e.classifier.Precompute(n)
	if err != nil {
		return nil, fmt.Errorf("regime precompute failed: %w", err)
	}

	runID := uuid.New().String()
	log.Info().
		Str("run_id", runID).
		Int("days", n-start).
		Int("warmup", start).
		Msg("Starting backtest run")

	result := &Result{
		RunID:     runID,
		StartDate: e.panel.Dates[start],
		EndDate:   e.panel.Dates[n-1],
		Assets:    e.panel.Assets,
		Ledger:    make([]LedgerEntry, 0, n-start),
	}

	riskState := risk.NewState()
	numAssets := e.panel.NumAssets()
	prevPost := make([]float64, numAssets)
	prevBlended := make([]float64, numAssets)
	equity := 1.0
	costRate := e.cfg.TransactionCostRate()
	prevLabel := regime.Label(-1)

	for t := start; t < n; t++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("backtest aborted on day %s: %w",
				e.panel.Dates[t].Format("2006-01-02"), ctx.Err())
		default:
		}

		rets := e.panel.Returns(t)

		// Daily return realized on yesterday's post-cost weights. Missing
		// prices contribute zero for that asset only.
		grossReturn := e.dot(prevPost, rets, t)
		preOverlayReturn := e.dot(prevBlended, rets, t)

		// Pipeline: regime -> sleeves -> blend -> overlay
		state := states[t]
		budget := blend.Mix(state.Label, state.PHighSmoothed, state.Confidence)
		if err := budget.Validate(); err != nil {
			return nil, fmt.Errorf("day %s: %w", e.panel.Dates[t].Format("2006-01-02"), err)
		}

		momW := e.momentum.Weights(t)
		pairW := e.pairs.Advance(t)
		tsW := e.timeseries.Weights(t)
		defW := e.defensive.Weights()

		blended := blend.Blend(budget, momW, pairW, tsW, defW, state.Confidence)
		target := e.overlay.Apply(riskState, blended)
		// Snapshot mode and timer before RecordDay mutates them, so the
		// ledger row reflects the state the weights were sized under.
		modeAtEntry := riskState.Mode
		cooldownAtEntry := riskState.CooldownRemaining

		// Zero-weight substitution for assets without a price today
		preCost := make([]float64, numAssets)
		copy(preCost, target)
		for a := range preCost {
			if math.IsNaN(e.panel.Close(t, a)) && preCost[a] != 0 {
				log.Warn().
					Str("asset", e.panel.Assets[a]).
					Str("date", e.panel.Dates[t].Format("2006-01-02")).
					Msg("Missing price for held asset, substituting zero weight")
				e.collector.MissingPrice()
				preCost[a] = 0
			}
		}

		turnover := 0.0
		for a := range preCost {
			turnover += math.Abs(preCost[a] - prevPost[a])
		}
		cost := turnover * costRate

		dailyReturn := grossReturn - cost
		equity *= 1.0 + dailyReturn

		riskState.RecordDay(preOverlayReturn, equity, e.cfg.Risk.VolWindow)

		postCost := make([]float64, numAssets)
		copy(postCost, preCost)

		result.Ledger = append(result.Ledger, LedgerEntry{
			Date:              e.panel.Dates[t],
			WeightsPreCost:    preCost,
			WeightsPostCost:   postCost,
			Turnover:          turnover,
			TransactionCost:   cost,
			DailyReturn:       dailyReturn,
			Equity:            equity,
			RegimeLabel:       state.Label.String(),
			PHighSmoothed:     state.PHighSmoothed,
			Confidence:        state.Confidence,
			RiskMode:          modeAtEntry.String(),
			CooldownRemaining: cooldownAtEntry,
			Drawdown:          riskState.Drawdown,
		})

		e.collector.Day(state.Label.String(), modeAtEntry.String())
		if state.Degenerate {
			e.collector.DegenerateFit()
		}
		if state.Label != prevLabel {
			if prevLabel >= 0 {
				e.collector.RegimeTransition()
			}
			prevLabel = state.Label
		}
		if modeAtEntry == risk.Cooldown && cooldownAtEntry == e.cfg.Risk.CooldownDays {
			e.collector.CooldownTrigger()
		}

		prevPost = postCost
		prevBlended = blended
	}

	result.Summary = Summarize(result.Ledger, e.cfg.DevSampleDays)
	result.FinalRiskState = riskState

	log.Info().
		Str("run_id", runID).
		Float64("final_equity", equity).
		Float64("sharpe", result.Summary.Sharpe).
		Msg("Backtest run complete")

	return result, nil
}

// warmupDays returns the first simulated day index: every sleeve and
// indicator must have its full trailing window
func (e *Engine) warmupDays() int {
	w := e.cfg.MaxLookback()
	indMin := indicators.RealizedVolWindow + indicators.VolSlopeLag + 1
	if indMin > w {
		w = indMin
	}
	return w
}

// dot computes the portfolio return, skipping assets whose return is
// missing while the book holds them
func (e *Engine) dot(weights, rets []float64, t int) float64 {
	sum := 0.0
	for a := range weights {
		if weights[a] == 0 {
			continue
		}
		if math.IsNaN(rets[a]) {
			log.Debug().
				Str("asset", e.panel.Assets[a]).
				Str("date", e.panel.Dates[t].Format("2006-01-02")).
				Msg("Missing return for held asset, excluded from day's PnL")
			continue
		}
		sum += weights[a] * rets[a]
	}
	return sum
}
