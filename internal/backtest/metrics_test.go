package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(day int, ret, turnover float64, label string) LedgerEntry {
	return LedgerEntry{
		Date:            time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		DailyReturn:     ret,
		Turnover:        turnover,
		TransactionCost: turnover * 0.001,
		RegimeLabel:     label,
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 0)
	assert.Zero(t, s.Days)
	assert.Zero(t, s.TotalReturn)
	assert.Nil(t, s.Development)
	assert.Nil(t, s.Validation)
}

func TestSummarize_TotalReturnAndCAGR(t *testing.T) {
	ledger := []LedgerEntry{
		entry(0, 0.01, 0.2, "low_vol"),
		entry(1, 0.01, 0.1, "low_vol"),
		entry(2, 0.01, 0.1, "low_vol"),
		entry(3, 0.01, 0.1, "low_vol"),
	}
	s := Summarize(ledger, 0)

	finalEquity := math.Pow(1.01, 4)
	assert.Equal(t, 4, s.Days)
	assert.InDelta(t, finalEquity-1, s.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(finalEquity, 252.0/4.0)-1, s.CAGR, 1e-9)
	assert.InDelta(t, 0.5, s.TotalTurnover, 1e-12)
	assert.InDelta(t, 0.125, s.AvgTurnover, 1e-12)
	assert.InDelta(t, 0.0005, s.TotalCosts, 1e-12)

	// Constant returns carry zero volatility, so Sharpe is left at zero
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.Sharpe)
}

func TestSummarize_MaxDrawdown(t *testing.T) {
	ledger := []LedgerEntry{
		entry(0, 0.10, 0, "low_vol"),
		entry(1, -0.05, 0, "low_vol"),
		entry(2, 0.02, 0, "low_vol"),
	}
	s := Summarize(ledger, 0)
	assert.InDelta(t, -0.05, s.MaxDrawdown, 1e-12, "trough measured from the running peak")
}

func TestSummarize_SharpeSign(t *testing.T) {
	up := []LedgerEntry{
		entry(0, 0.01, 0, "low_vol"),
		entry(1, 0.02, 0, "low_vol"),
		entry(2, 0.005, 0, "low_vol"),
	}
	down := []LedgerEntry{
		entry(0, -0.01, 0, "low_vol"),
		entry(1, -0.02, 0, "low_vol"),
		entry(2, -0.005, 0, "low_vol"),
	}
	assert.Greater(t, Summarize(up, 0).Sharpe, 0.0)
	assert.Less(t, Summarize(down, 0).Sharpe, 0.0)
}

func TestSummarize_VolatilityAnnualized(t *testing.T) {
	// Alternating ±1% has zero mean and population std exactly 0.01
	ledger := make([]LedgerEntry, 20)
	for i := range ledger {
		r := 0.01
		if i%2 == 1 {
			r = -0.01
		}
		ledger[i] = entry(i, r, 0, "medium_vol")
	}
	s := Summarize(ledger, 0)
	assert.InDelta(t, 0.01*math.Sqrt(252), s.Volatility, 1e-12)
}

func TestSummarize_RegimeAttribution(t *testing.T) {
	ledger := []LedgerEntry{
		entry(0, 0.01, 0.3, "low_vol"),
		entry(1, 0.02, 0.1, "low_vol"),
		entry(2, -0.03, 0.5, "high_vol"),
		entry(3, 0.005, 0.2, "medium_vol"),
	}
	s := Summarize(ledger, 0)

	require.Len(t, s.ByRegime, 3)

	low := s.ByRegime["low_vol"]
	assert.Equal(t, 2, low.Days)
	assert.InDelta(t, 1.01*1.02-1, low.TotalReturn, 1e-12)
	assert.InDelta(t, 0.015, low.MeanDaily, 1e-12)
	assert.InDelta(t, 0.4, low.Turnover, 1e-12)

	high := s.ByRegime["high_vol"]
	assert.Equal(t, 1, high.Days)
	assert.InDelta(t, -0.03, high.TotalReturn, 1e-12)
	assert.Zero(t, high.Sharpe, "single observation has no dispersion")
}

func TestSummarize_DevValidationSplit(t *testing.T) {
	ledger := make([]LedgerEntry, 10)
	for i := range ledger {
		r := 0.01
		if i >= 6 {
			r = -0.01
		}
		ledger[i] = entry(i, r, 0.1, "low_vol")
	}

	s := Summarize(ledger, 6)
	require.NotNil(t, s.Development)
	require.NotNil(t, s.Validation)

	assert.Equal(t, 6, s.Development.Days)
	assert.Equal(t, 4, s.Validation.Days)
	assert.Greater(t, s.Development.TotalReturn, 0.0)
	assert.Less(t, s.Validation.TotalReturn, 0.0)

	// The split is reporting-only: the headline block covers every day
	assert.Equal(t, 10, s.Days)
	assert.InDelta(t, 1.0, s.TotalTurnover, 1e-12)
}

func TestSummarize_SplitSkippedWhenOutOfRange(t *testing.T) {
	ledger := []LedgerEntry{entry(0, 0.01, 0, "low_vol"), entry(1, 0.01, 0, "low_vol")}

	assert.Nil(t, Summarize(ledger, 0).Development)
	assert.Nil(t, Summarize(ledger, 2).Development, "split needs days on both sides")
	assert.Nil(t, Summarize(ledger, 5).Development)
}
