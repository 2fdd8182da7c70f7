package backtest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes run counters to Prometheus. All methods are safe on a
// nil receiver so the engine can run without an ops listener.
type Collector struct {
	daysProcessed    *prometheus.CounterVec
	degenerateFits   prometheus.Counter
	missingPrices    prometheus.Counter
	cooldownTriggers prometheus.Counter
	regimeChanges    prometheus.Counter
}

// NewCollector creates and registers the run metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		daysProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_days_processed_total",
			Help: "Simulated days processed, by regime label and risk mode",
		}, []string{"regime", "risk_mode"}),
		degenerateFits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_degenerate_fits_total",
			Help: "Classifier windows that fell back to a neutral probability",
		}),
		missingPrices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_missing_prices_total",
			Help: "Held assets zero-weighted due to a missing price",
		}),
		cooldownTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_cooldown_triggers_total",
			Help: "Crash-cooldown activations",
		}),
		regimeChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_regime_transitions_total",
			Help: "Regime label transitions between consecutive days",
		}),
	}

	reg.MustRegister(c.daysProcessed, c.degenerateFits, c.missingPrices,
		c.cooldownTriggers, c.regimeChanges)

	return c
}

// Day records one processed simulation day
func (c *Collector) Day(regimeLabel, riskMode string) {
	if c == nil {
		return
	}
	c.daysProcessed.WithLabelValues(regimeLabel, riskMode).Inc()
}

// DegenerateFit records a neutral-probability fallback
func (c *Collector) DegenerateFit() {
	if c == nil {
		return
	}
	c.degenerateFits.Inc()
}

// MissingPrice records a zero-weight substitution
func (c *Collector) MissingPrice() {
	if c == nil {
		return
	}
	c.missingPrices.Inc()
}

// CooldownTrigger records a crash-cooldown activation
func (c *Collector) CooldownTrigger() {
	if c == nil {
		return
	}
	c.cooldownTriggers.Inc()
}

// RegimeTransition records a label change between consecutive days
func (c *Collector) RegimeTransition() {
	if c == nil {
		return
	}
	c.regimeChanges.Inc()
}
