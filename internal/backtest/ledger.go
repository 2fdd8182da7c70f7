package backtest

import (
	"time"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/risk"
)

// LedgerEntry is one simulated day's record. Entries are append-only and
// never mutated after creation; the engine alone owns the ledger.
type LedgerEntry struct {
	Date              time.Time `json:"date"`
	WeightsPreCost    []float64 `json:"weights_pre_cost"`
	WeightsPostCost   []float64 `json:"weights_post_cost"`
	Turnover          float64   `json:"turnover"`
	TransactionCost   float64   `json:"transaction_cost"`
	DailyReturn       float64   `json:"daily_return"`
	Equity            float64   `json:"equity"`
	RegimeLabel       string    `json:"regime_label"`
	PHighSmoothed     float64   `json:"p_high_smoothed"`
	Confidence        float64   `json:"confidence"`
	RiskMode          string    `json:"risk_mode"`
	CooldownRemaining int       `json:"cooldown_remaining"`
	Drawdown          float64   `json:"drawdown"`
}

// Result is the completed run: the full ledger plus summary statistics
type Result struct {
	RunID     string        `json:"run_id"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Assets    []string      `json:"assets"`
	Ledger    []LedgerEntry `json:"ledger"`
	Summary   Summary       `json:"summary"`

	// FinalRiskState is exposed for inspection and tests
	FinalRiskState *risk.State `json:"-"`
}
