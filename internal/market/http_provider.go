package market

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPProviderConfig configures the remote panel provider
type HTTPProviderConfig struct {
	PricesURL      string        `yaml:"prices_url"`
	VIXURL         string        `yaml:"vix_url"`
	Timeout        time.Duration `yaml:"timeout"`         // Default: 30s
	RPS            float64       `yaml:"rps"`             // Default: 2
	Burst          int           `yaml:"burst"`           // Default: 1
	BreakerTimeout time.Duration `yaml:"breaker_timeout"` // Default: 60s
}

// DefaultHTTPProviderConfig returns provider defaults
func DefaultHTTPProviderConfig(pricesURL, vixURL string) HTTPProviderConfig {
	return HTTPProviderConfig{
		PricesURL:      pricesURL,
		VIXURL:         vixURL,
		Timeout:        30 * time.Second,
		RPS:            2,
		Burst:          1,
		BreakerTimeout: 60 * time.Second,
	}
}

// HTTPProvider fetches the CSV panel pair over HTTP, protected by a rate
// limiter and a circuit breaker. Panel retrieval happens once, before any
// simulation day runs; a fetch failure aborts before the loop starts.
type HTTPProvider struct {
	config  HTTPProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPProvider creates a breaker-protected remote provider
func NewHTTPProvider(config HTTPProviderConfig) *HTTPProvider {
	settings := gobreaker.Settings{
		Name:    "panel-provider",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Panel provider breaker state change")
		},
	}

	return &HTTPProvider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RPS), config.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// LoadPanel fetches and aligns the remote price and VIX series
func (p *HTTPProvider) LoadPanel(ctx context.Context, universe []string, volatilityID string) (*Panel, error) {
	priceDates, priceCols, err := p.fetchTable(ctx, p.config.PricesURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	vixDates, vixCols, err := p.fetchTable(ctx, p.config.VIXURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vix: %w", err)
	}

	vixSeries, ok := vixCols[volatilityID]
	if !ok && len(vixCols) == 1 {
		for _, col := range vixCols {
			vixSeries = col
		}
		ok = true
	}
	if !ok {
		return nil, fmt.Errorf("volatility index %q not found at %s", volatilityID, p.config.VIXURL)
	}

	vixByDate := make(map[string]float64, len(vixDates))
	for i, d := range vixDates {
		vixByDate[d.Format("2006-01-02")] = vixSeries[i]
	}

	var dates []time.Time
	var prices [][]float64
	var vix []float64
	for i, d := range priceDates {
		v, found := vixByDate[d.Format("2006-01-02")]
		if !found {
			continue
		}
		row := make([]float64, len(universe))
		for a, asset := range universe {
			col, found := priceCols[asset]
			if !found {
				return nil, fmt.Errorf("asset %q not found at %s", asset, p.config.PricesURL)
			}
			row[a] = col[i]
		}
		dates = append(dates, d)
		prices = append(prices, row)
		vix = append(vix, v)
	}

	return NewPanel(universe, dates, prices, vix)
}

func (p *HTTPProvider) fetchTable(ctx context.Context, url string) ([]time.Time, map[string][]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	type table struct {
		dates []time.Time
		cols  map[string][]float64
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		dates, cols, err := parseCSVTable(resp.Body, url)
		if err != nil {
			return nil, err
		}
		return table{dates: dates, cols: cols}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	t := result.(table)
	return t.dates, t.cols, nil
}
