package regime

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/config"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/indicators"
	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// Label is the discrete market-volatility regime
type Label int

const (
	Low Label = iota
	Medium
	High
)

func (l Label) String() string {
	switch l {
	case Low:
		return "low_vol"
	case Medium:
		return "medium_vol"
	case High:
		return "high_vol"
	default:
		return "unknown"
	}
}

// State is the per-day regime estimate
type State struct {
	Day           int     `json:"day"`
	PHighRaw      float64 `json:"p_high_raw"`
	PHighSmoothed float64 `json:"p_high_smoothed"`
	Confidence    float64 `json:"confidence"`
	Label         Label   `json:"label"`
	Degenerate    bool    `json:"degenerate"` // Fallback probability was used
}

// Classifier maintains the walk-forward logistic regime model. Each day it
// refits on a fixed-length trailing window ending the previous day, so no
// fitted parameter ever sees the day it predicts.
type Classifier struct {
	cfg    config.RegimeConfig
	engine *indicators.Engine
}

// NewClassifier creates a walk-forward regime classifier
func NewClassifier(cfg config.RegimeConfig, engine *indicators.Engine) *Classifier {
	return &Classifier{cfg: cfg, engine: engine}
}

// Precompute runs the walk-forward fit over days [0, n) and returns one
// state per day. Days without a valid indicator snapshot get a neutral
// state. The pass is sequential but reads only backward-looking windows, so
// it can run before the path-dependent risk pass.
func (c *Classifier) Precompute(n int) ([]State, error) {
	if n <= 0 {
		return nil, errors.New("no days to classify")
	}

	snaps := make([]*indicators.Snapshot, n)
	vols := make([]float64, n)
	firstValid := -1
	for t := 0; t < n; t++ {
		snap, err := c.engine.Snapshot(t)
		if err != nil {
			continue
		}
		snaps[t] = snap
		vols[t] = snap.RealizedVol
		if firstValid < 0 {
			firstValid = t
		}
	}
	if firstValid < 0 {
		return nil, fmt.Errorf("no day has sufficient history for indicators")
	}

	states := make([]State, n)
	degenerateDays := 0
	smoothed := math.NaN()

	for t := 0; t < n; t++ {
		raw, degenerate := c.rawProbability(snaps, vols, firstValid, t)

		// EMA seeded by the first valid raw value
		alpha := c.cfg.EMAAlpha()
		if math.IsNaN(smoothed) {
			smoothed = raw
		} else {
			smoothed = alpha*raw + (1-alpha)*smoothed
		}

		if degenerate {
			degenerateDays++
		}

		states[t] = State{
			Day:           t,
			PHighRaw:      raw,
			PHighSmoothed: smoothed,
			Confidence:    2.0 * math.Abs(smoothed-0.5),
			Label:         c.label(smoothed),
			Degenerate:    degenerate,
		}
	}

	if degenerateDays > 0 {
		log.Debug().Int("days", degenerateDays).Msg("Classifier fell back to the window class on degenerate windows")
	}

	return states, nil
}

// rawProbability produces p_high_raw for day t. Before enough training
// history exists it reports the trailing high-label base rate; a
// single-class window falls back to that class value, so a calm tape keeps
// probability 0 rather than drifting to neutral.
func (c *Classifier) rawProbability(snaps []*indicators.Snapshot, vols []float64, firstValid, t int) (float64, bool) {
	if snaps[t] == nil {
		return 0.5, false
	}

	trainStart := t - c.cfg.TrainWindow
	if trainStart < firstValid {
		return c.baseRate(vols, firstValid, t), false
	}

	X := make([][]float64, 0, c.cfg.TrainWindow)
	y := make([]int, 0, c.cfg.TrainWindow)
	window := make([]float64, 0, c.cfg.TrainWindow)
	for i := trainStart; i < t; i++ {
		if snaps[i] == nil {
			continue
		}
		window = append(window, vols[i])
	}
	threshold := stats.Quantile(window, c.cfg.VolLabelQuantile)

	for i := trainStart; i < t; i++ {
		if snaps[i] == nil {
			continue
		}
		X = append(X, snaps[i].Vector())
		label := 0
		if vols[i] > threshold {
			label = 1
		}
		y = append(y, label)
	}

	model, err := fitLogit(X, y)
	if err != nil {
		if errors.Is(err, ErrDegenerateFit) {
			// Every label in the window agrees, so the window's own class
			// is the fitted probability.
			return float64(y[len(y)-1]), true
		}
		log.Warn().Err(err).Int("day", t).Msg("Logistic fit failed, using neutral probability")
		return 0.5, true
	}

	return stats.Clip(model.predict(snaps[t].Vector()), 0, 1), false
}

// baseRate is the warmup estimate: the fraction of trailing valid days whose
// realized vol sat above the trailing quantile threshold
func (c *Classifier) baseRate(vols []float64, firstValid, t int) float64 {
	window := make([]float64, 0, t-firstValid+1)
	for i := firstValid; i <= t; i++ {
		window = append(window, vols[i])
	}
	if len(window) < 2 {
		return 0.0
	}
	threshold := stats.Quantile(window[:len(window)-1], c.cfg.VolLabelQuantile)
	high := 0
	for _, v := range window[:len(window)-1] {
		if v > threshold {
			high++
		}
	}
	return float64(high) / float64(len(window)-1)
}

// label maps the smoothed probability to the discrete regime
func (c *Classifier) label(pHigh float64) Label {
	switch {
	case pHigh > c.cfg.HighThreshold:
		return High
	case pHigh < c.cfg.LowThreshold:
		return Low
	default:
		return Medium
	}
}
