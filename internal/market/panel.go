package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMissingPrice marks an asset price unavailable on a day the portfolio
// holds it. Callers substitute zero weight rather than abort the run.
var ErrMissingPrice = errors.New("price unavailable")

// ErrDataInsufficient marks fewer trailing observations than a component's
// minimum window requires.
var ErrDataInsufficient = errors.New("insufficient trailing history")

// Panel is the time-indexed close-price and volatility-index history for a
// fixed asset universe. Dates are strictly increasing; missing prices are
// stored as NaN.
type Panel struct {
	Assets []string
	Dates  []time.Time
	Prices [][]float64 // [day][asset]
	VIX    []float64

	assetIdx map[string]int
}

// NewPanel constructs a panel and validates its shape and date ordering
func NewPanel(assets []string, dates []time.Time, prices [][]float64, vix []float64) (*Panel, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("panel has no trading days")
	}
	if len(prices) != len(dates) || len(vix) != len(dates) {
		return nil, fmt.Errorf("panel shape mismatch: %d dates, %d price rows, %d vix values",
			len(dates), len(prices), len(vix))
	}
	for i, row := range prices {
		if len(row) != len(assets) {
			return nil, fmt.Errorf("price row %d has %d assets, expected %d", i, len(row), len(assets))
		}
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates not strictly increasing at index %d: %s then %s",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}

	idx := make(map[string]int, len(assets))
	for i, a := range assets {
		idx[a] = i
	}

	return &Panel{
		Assets:   assets,
		Dates:    dates,
		Prices:   prices,
		VIX:      vix,
		assetIdx: idx,
	}, nil
}

// Len returns the number of trading days
func (p *Panel) Len() int {
	return len(p.Dates)
}

// NumAssets returns the universe size
func (p *Panel) NumAssets() int {
	return len(p.Assets)
}

// AssetIndex returns the column index for an asset identifier
func (p *Panel) AssetIndex(asset string) (int, bool) {
	i, ok := p.assetIdx[asset]
	return i, ok
}

// Close returns the close price for asset a on day t
func (p *Panel) Close(t, a int) float64 {
	return p.Prices[t][a]
}

// Returns computes simple returns for day t versus day t-1. Assets with a
// missing price on either day yield NaN.
func (p *Panel) Returns(t int) []float64 {
	rets := make([]float64, p.NumAssets())
	if t <= 0 {
		for a := range rets {
			rets[a] = math.NaN()
		}
		return rets
	}
	for a := range rets {
		prev := p.Prices[t-1][a]
		cur := p.Prices[t][a]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
			rets[a] = math.NaN()
			continue
		}
		rets[a] = cur/prev - 1.0
	}
	return rets
}

// Slice returns a view of the panel restricted to days [from, to). The
// backing arrays are shared; callers must not mutate them.
func (p *Panel) Slice(from, to int) (*Panel, error) {
	if from < 0 || to > p.Len() || from >= to {
		return nil, fmt.Errorf("invalid slice bounds [%d, %d) for panel of %d days", from, to, p.Len())
	}
	return &Panel{
		Assets:   p.Assets,
		Dates:    p.Dates[from:to],
		Prices:   p.Prices[from:to],
		VIX:      p.VIX[from:to],
		assetIdx: p.assetIdx,
	}, nil
}

// IndexOnOrAfter returns the first day index whose date is >= d
func (p *Panel) IndexOnOrAfter(d time.Time) (int, bool) {
	for i, dt := range p.Dates {
		if !dt.Before(d) {
			return i, true
		}
	}
	return 0, false
}
