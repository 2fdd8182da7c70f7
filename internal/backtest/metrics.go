package backtest

import (
	"math"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/stats"
)

// tradingDaysPerYear annualizes daily return statistics
const tradingDaysPerYear = 252.0

// RegimeStats is the per-regime attribution block
type RegimeStats struct {
	Days        int     `json:"days"`
	TotalReturn float64 `json:"total_return"`
	MeanDaily   float64 `json:"mean_daily"`
	Sharpe      float64 `json:"sharpe"`
	Turnover    float64 `json:"turnover"`
}

// Summary is the post-hoc statistics block computed on the recorded ledger
type Summary struct {
	Days          int     `json:"days"`
	TotalReturn   float64 `json:"total_return"`
	CAGR          float64 `json:"cagr"`
	Sharpe        float64 `json:"sharpe"`
	Volatility    float64 `json:"volatility"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	TotalTurnover float64 `json:"total_turnover"`
	AvgTurnover   float64 `json:"avg_turnover"`
	TotalCosts    float64 `json:"total_costs"`

	ByRegime map[string]RegimeStats `json:"by_regime"`

	// Development/validation partition over the single continuous run.
	// Present only when a split was configured.
	Development *Summary `json:"development,omitempty"`
	Validation  *Summary `json:"validation,omitempty"`
}

// Summarize computes summary statistics over the ledger. devSampleDays > 0
// additionally reports the first devSampleDays entries and the remainder as
// separate partitions; the split is reporting-only and never changes the
// simulation itself.
func Summarize(ledger []LedgerEntry, devSampleDays int) Summary {
	summary := summarize(ledger)

	if devSampleDays > 0 && devSampleDays < len(ledger) {
		dev := summarize(ledger[:devSampleDays])
		val := summarize(ledger[devSampleDays:])
		summary.Development = &dev
		summary.Validation = &val
	}

	return summary
}

func summarize(ledger []LedgerEntry) Summary {
	s := Summary{
		Days:     len(ledger),
		ByRegime: make(map[string]RegimeStats),
	}
	if len(ledger) == 0 {
		return s
	}

	returns := make([]float64, len(ledger))
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	byRegime := make(map[string][]float64)

	for i, entry := range ledger {
		returns[i] = entry.DailyReturn
		equity *= 1.0 + entry.DailyReturn
		if equity > peak {
			peak = equity
		}
		dd := equity/peak - 1.0
		if dd < maxDD {
			maxDD = dd
		}
		s.TotalTurnover += entry.Turnover
		s.TotalCosts += entry.TransactionCost

		byRegime[entry.RegimeLabel] = append(byRegime[entry.RegimeLabel], entry.DailyReturn)

		rs := s.ByRegime[entry.RegimeLabel]
		rs.Days++
		rs.Turnover += entry.Turnover
		s.ByRegime[entry.RegimeLabel] = rs
	}

	s.TotalReturn = equity - 1.0
	s.CAGR = math.Pow(equity, tradingDaysPerYear/float64(len(ledger))) - 1.0
	s.MaxDrawdown = maxDD
	s.AvgTurnover = s.TotalTurnover / float64(len(ledger))

	// Sharpe uses population std, not sample std
	std := stats.StdPop(returns)
	s.Volatility = std * math.Sqrt(tradingDaysPerYear)
	if std > 0 {
		s.Sharpe = math.Sqrt(tradingDaysPerYear) * stats.Mean(returns) / std
	}

	for label, rets := range byRegime {
		rs := s.ByRegime[label]
		compounded := 1.0
		for _, r := range rets {
			compounded *= 1.0 + r
		}
		rs.TotalReturn = compounded - 1.0
		rs.MeanDaily = stats.Mean(rets)
		if rstd := stats.StdPop(rets); rstd > 0 {
			rs.Sharpe = math.Sqrt(tradingDaysPerYear) * rs.MeanDaily / rstd
		}
		s.ByRegime[label] = rs
	}

	return s
}
