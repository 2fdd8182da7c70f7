package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// CachedProvider wraps a Provider with a Redis panel cache. A cache hit
// skips the underlying provider entirely; misses fall through and the
// fetched panel is stored best-effort. The cache sits strictly outside the
// daily loop.
type CachedProvider struct {
	inner  Provider
	client redis.Cmdable
	ttl    time.Duration
}

// panelEnvelope is the cache wire format. Missing prices are encoded as
// null since JSON has no NaN.
type panelEnvelope struct {
	Assets []string     `json:"assets"`
	Dates  []string     `json:"dates"`
	Prices [][]*float64 `json:"prices"`
	VIX    []float64    `json:"vix"`
}

// NewCachedProvider wraps inner with a Redis cache
func NewCachedProvider(inner Provider, client redis.Cmdable, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

// CacheKey derives a stable key from the universe and volatility id
func CacheKey(universe []string, volatilityID string) string {
	sorted := append([]string(nil), universe...)
	sort.Strings(sorted)
	return fmt.Sprintf("panel:%s:%s", volatilityID, strings.Join(sorted, ","))
}

// LoadPanel serves the panel from cache when possible
func (c *CachedProvider) LoadPanel(ctx context.Context, universe []string, volatilityID string) (*Panel, error) {
	key := CacheKey(universe, volatilityID)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		panel, decodeErr := decodePanel(data)
		if decodeErr == nil {
			log.Debug().Str("key", key).Int("days", panel.Len()).Msg("Panel cache hit")
			return panel, nil
		}
		log.Warn().Err(decodeErr).Str("key", key).Msg("Discarding corrupt cached panel")
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("Panel cache read failed, falling through")
	}

	panel, err := c.inner.LoadPanel(ctx, universe, volatilityID)
	if err != nil {
		return nil, err
	}

	if data, encodeErr := encodePanel(panel); encodeErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("Panel cache write failed")
		}
	}

	return panel, nil
}

func encodePanel(p *Panel) ([]byte, error) {
	env := panelEnvelope{
		Assets: p.Assets,
		Dates:  make([]string, len(p.Dates)),
		Prices: make([][]*float64, len(p.Prices)),
		VIX:    p.VIX,
	}
	for i, d := range p.Dates {
		env.Dates[i] = d.Format("2006-01-02")
	}
	for i, row := range p.Prices {
		encoded := make([]*float64, len(row))
		for a := range row {
			if !math.IsNaN(row[a]) {
				v := row[a]
				encoded[a] = &v
			}
		}
		env.Prices[i] = encoded
	}
	return json.Marshal(env)
}

func decodePanel(data []byte) (*Panel, error) {
	var env panelEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode cached panel: %w", err)
	}
	dates := make([]time.Time, len(env.Dates))
	for i, s := range env.Dates {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("bad cached date %q: %w", s, err)
		}
		dates[i] = d
	}
	prices := make([][]float64, len(env.Prices))
	for i, row := range env.Prices {
		decoded := make([]float64, len(row))
		for a, cell := range row {
			if cell == nil {
				decoded[a] = math.NaN()
			} else {
				decoded[a] = *cell
			}
		}
		prices[i] = decoded
	}
	return NewPanel(env.Assets, dates, prices, env.VIX)
}
