// Package risk implements the volatility-targeting overlay and its
// NORMAL/THROTTLED/COOLDOWN state machine.
package risk

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// Mode is the overlay's discrete state
type Mode int

const (
	Normal Mode = iota
	Throttled
	Cooldown
)

func (m Mode) String() string {
	switch m {
	case Throttled:
		return "throttled"
	case Cooldown:
		return "cooldown"
	default:
		return "normal"
	}
}

// State is the run-wide risk state threaded explicitly through the daily
// loop. It is mutated once per simulated day, in date order, only by the
// overlay and its end-of-day record step.
type State struct {
	Mode              Mode
	Equity            float64
	Peak              float64
	Drawdown          float64 // <= 0
	CooldownRemaining int

	preReturns []float64 // Trailing blended pre-overlay returns
}

// NewState initializes the risk state at unit equity
func NewState() *State {
	return &State{
		Mode:   Normal,
		Equity: 1.0,
		Peak:   1.0,
	}
}

// Overlay rescales the blended weight vector for volatility targeting,
// leverage capping, drawdown throttling, and crash cooldown
type Overlay struct {
	cfg       config.RiskConfig
	defensive []float64
}

// NewOverlay creates the risk overlay. defensive is the weight vector the
// cooldown state forces the book toward.
func NewOverlay(cfg config.RiskConfig, defensive []float64) *Overlay {
	return &Overlay{cfg: cfg, defensive: defensive}
}

// Apply produces the terminal weight vector for the day from the blended
// vector, using the state as of the previous close. Cooldown handling runs
// first: the timer re-arms while the drawdown still breaches the crash
// threshold, decrements once per day otherwise, and forces the
// defensive-only book while it runs.
func (o *Overlay) Apply(st *State, blended []float64) []float64 {
	if st.Drawdown <= -o.cfg.CrashDrawdown {
		if st.CooldownRemaining == 0 {
			log.Warn().
				Float64("drawdown", st.Drawdown).
				Int("days", o.cfg.CooldownDays).
				Msg("Crash threshold breached, entering cooldown")
		}
		st.CooldownRemaining = o.cfg.CooldownDays
	}

	if st.CooldownRemaining > 0 {
		st.Mode = Cooldown
		out := make([]float64, len(blended))
		copy(out, o.defensive)
		return out
	}

	scaled := o.volTarget(st, blended)
	scaled = o.capLeverage(scaled)

	factor := o.throttleFactor(st.Drawdown)
	if factor < 1.0 {
		st.Mode = Throttled
		for a := range scaled {
			scaled[a] *= factor
		}
	} else {
		st.Mode = Normal
	}

	return scaled
}

// RecordDay folds the day's outcome into the state: the pre-overlay return
// feeds the vol estimate, equity rolls the running peak and drawdown
// forward. Called exactly once per simulated day, after returns are known.
func (st *State) RecordDay(preOverlayReturn, equity float64, volWindow int) {
	st.preReturns = append(st.preReturns, preOverlayReturn)
	if len(st.preReturns) > volWindow {
		st.preReturns = st.preReturns[len(st.preReturns)-volWindow:]
	}

	st.Equity = equity
	if equity > st.Peak {
		st.Peak = equity
	}
	if st.Peak > 0 {
		st.Drawdown = equity/st.Peak - 1.0
	}

	// Timer decrements once per simulated day; Apply re-arms it if the
	// drawdown still breaches the crash threshold tomorrow.
	if st.CooldownRemaining > 0 {
		st.CooldownRemaining--
		if st.CooldownRemaining == 0 {
			st.Mode = Normal
		}
	}
}

// volTarget scales weights by target/realized vol of the trailing
// pre-overlay returns. Insufficient history or zero vol leaves weights
// unscaled.
func (o *Overlay) volTarget(st *State, blended []float64) []float64 {
	out := make([]float64, len(blended))
	copy(out, blended)

	if len(st.preReturns) < o.cfg.VolWindow {
		return out
	}
	realized := stats.StdPop(st.preReturns) * math.Sqrt(252)
	if math.IsNaN(realized) || realized == 0 {
		return out
	}

	scale := o.cfg.TargetVol / realized
	for a := range out {
		out[a] *= scale
	}
	return out
}

// capLeverage rescales so gross exposure never exceeds the cap
func (o *Overlay) capLeverage(weights []float64) []float64 {
	gross := 0.0
	for _, w := range weights {
		gross += math.Abs(w)
	}
	if gross <= o.cfg.LeverageCap {
		return weights
	}
	scale := o.cfg.LeverageCap / gross
	for a := range weights {
		weights[a] *= scale
	}
	return weights
}

// throttleFactor interpolates linearly from 1.0 at the throttle threshold
// to the floor at the crash threshold and beyond
func (o *Overlay) throttleFactor(drawdown float64) float64 {
	dd := -drawdown // Positive magnitude
	if dd <= o.cfg.ThrottleDrawdown {
		return 1.0
	}
	span := o.cfg.CrashDrawdown - o.cfg.ThrottleDrawdown
	frac := (dd - o.cfg.ThrottleDrawdown) / span
	if frac > 1 {
		frac = 1
	}
	return 1.0 - frac*(1.0-o.cfg.ThrottleFloor)
}
