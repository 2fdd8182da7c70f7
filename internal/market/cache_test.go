package market

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	panel *Panel
	calls int
}

func (s *stubProvider) LoadPanel(ctx context.Context, universe []string, volatilityID string) (*Panel, error) {
	s.calls++
	return s.panel, nil
}

func TestCachedProvider_MissFallsThroughAndStores(t *testing.T) {
	panel := testPanel(t, 3)
	panel.Prices[1][1] = math.NaN() // Exercise the null encoding
	stub := &stubProvider{panel: panel}

	client, mock := redismock.NewClientMock()
	key := CacheKey(panel.Assets, "^VIX")
	encoded, err := encodePanel(panel)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, encoded, time.Hour).SetVal("OK")

	cached := NewCachedProvider(stub, client, time.Hour)
	got, err := cached.LoadPanel(context.Background(), panel.Assets, "^VIX")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, panel.Len(), got.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_HitSkipsInner(t *testing.T) {
	panel := testPanel(t, 3)
	stub := &stubProvider{panel: panel}

	encoded, err := encodePanel(panel)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectGet(CacheKey(panel.Assets, "^VIX")).SetVal(string(encoded))

	cached := NewCachedProvider(stub, client, time.Hour)
	got, err := cached.LoadPanel(context.Background(), panel.Assets, "^VIX")
	require.NoError(t, err)
	assert.Equal(t, 0, stub.calls, "cache hit must skip the provider")
	assert.Equal(t, panel.Dates[0], got.Dates[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRoundTrip_PreservesMissingPrices(t *testing.T) {
	panel := testPanel(t, 4)
	panel.Prices[2][0] = math.NaN()

	encoded, err := encodePanel(panel)
	require.NoError(t, err)
	decoded, err := decodePanel(encoded)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(decoded.Prices[2][0]))
	assert.InDelta(t, panel.Prices[0][0], decoded.Prices[0][0], 1e-12)
	assert.Equal(t, panel.Dates, decoded.Dates)
}

func TestCacheKey_IsStableAcrossOrdering(t *testing.T) {
	a := CacheKey([]string{"SPY", "TLT"}, "^VIX")
	b := CacheKey([]string{"TLT", "SPY"}, "^VIX")
	assert.Equal(t, a, b)
}
