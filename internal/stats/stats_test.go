package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
)

const (
	ethType  = "0x1::coin::ETH"
	usdcType = "0x1::coin::USDC"
)

var testPool = model.Pool{
	CoinInfoX: model.CoinInfo{CoinType: ethType},
	CoinInfoY: model.CoinInfo{CoinType: usdcType},
}

type mapCache struct {
	mu     sync.Mutex
	values map[string]float64
	failOn map[string]bool
	keys   []string
}

func (c *mapCache) Get(_ context.Context, key string) (opt.Value[float64], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	if c.failOn[key] {
		return opt.None[float64](), errors.New("connection reset")
	}
	v, ok := c.values[key]
	if !ok {
		return opt.None[float64](), nil
	}
	return opt.Some(v), nil
}

// barrierCache blocks every lookup until n lookups are in flight.
type barrierCache struct {
	mu      sync.Mutex
	arrived int
	n       int
	release chan struct{}
}

func (c *barrierCache) Get(ctx context.Context, _ string) (opt.Value[float64], error) {
	c.mu.Lock()
	c.arrived++
	if c.arrived == c.n {
		close(c.release)
	}
	c.mu.Unlock()

	select {
	case <-c.release:
		return opt.Some(1.0), nil
	case <-ctx.Done():
		return opt.None[float64](), ctx.Err()
	}
}

func TestKey(t *testing.T) {
	require.Equal(t, "amm-"+ethType+"-"+usdcType+"-volume-24h", Key(ethType, usdcType, MetricVolume, Window24h))
	require.Equal(t, "amm-"+ethType+"-"+usdcType+"-txcount-1w", Key(ethType, usdcType, MetricTxCount, Window1w))
	require.Equal(t, Key(ethType, usdcType, MetricTVL, Window24h), Key(ethType, usdcType, MetricTVL, Window1w))
	require.Equal(t, "amm-"+ethType+"-"+usdcType+"-tvl", Key(ethType, usdcType, MetricTVL, Window1w))
}

func TestStatCacheMissIsAbsent(t *testing.T) {
	agg := NewAggregator(&mapCache{}, nil)
	v := agg.Stat(context.Background(), testPool, MetricVolume, Window24h)
	require.False(t, v.Present())
}

func TestStatCacheErrorIsAbsent(t *testing.T) {
	key := Key(ethType, usdcType, MetricFee, Window1w)
	agg := NewAggregator(&mapCache{
		values: map[string]float64{key: 12},
		failOn: map[string]bool{key: true},
	}, nil)
	require.False(t, agg.Stat(context.Background(), testPool, MetricFee, Window1w).Present())
}

func TestSummary(t *testing.T) {
	cache := &mapCache{values: map[string]float64{
		Key(ethType, usdcType, MetricTVL, Window1w):        250000,
		Key(ethType, usdcType, MetricVolume, Window24h):    1200.5,
		Key(ethType, usdcType, MetricFee, Window24h):       3.6,
		Key(ethType, usdcType, MetricUserCount, Window24h): 0,
		Key(ethType, usdcType, MetricTxCount, Window1w):    42,
	}}
	agg := NewAggregator(cache, nil)

	summary, err := agg.Summary(context.Background(), testPool)
	require.NoError(t, err)

	require.Equal(t, opt.Some(250000.0), summary.TVL)
	require.Equal(t, opt.Some(1200.5), summary.Volume24h)
	require.Equal(t, opt.Some(3.6), summary.Fee24h)
	require.Equal(t, opt.Some(0.0), summary.UserCount24h, "zero is a value, not absent")
	require.Equal(t, opt.Some(42.0), summary.TransactionCount1w)

	require.False(t, summary.TransactionCount24h.Present())
	require.False(t, summary.Volume1w.Present())
	require.False(t, summary.Fee1w.Present())
	require.False(t, summary.UserCount1w.Present())

	require.Len(t, cache.keys, 9)
	require.ElementsMatch(t, []string{
		Key(ethType, usdcType, MetricTVL, Window1w),
		Key(ethType, usdcType, MetricVolume, Window24h),
		Key(ethType, usdcType, MetricFee, Window24h),
		Key(ethType, usdcType, MetricUserCount, Window24h),
		Key(ethType, usdcType, MetricTxCount, Window24h),
		Key(ethType, usdcType, MetricVolume, Window1w),
		Key(ethType, usdcType, MetricFee, Window1w),
		Key(ethType, usdcType, MetricUserCount, Window1w),
		Key(ethType, usdcType, MetricTxCount, Window1w),
	}, cache.keys)
}

func TestSummaryLookupsRunConcurrently(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache := &barrierCache{n: 9, release: make(chan struct{})}
	summary, err := NewAggregator(cache, nil).Summary(ctx, testPool)
	require.NoError(t, err)
	require.True(t, summary.TVL.Present())
	require.True(t, summary.TransactionCount1w.Present())
}

func TestSummaryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(&mapCache{}, nil).Summary(ctx, testPool)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummaryWithoutCache(t *testing.T) {
	summary, err := NewAggregator(nil, nil).Summary(context.Background(), testPool)
	require.NoError(t, err)
	require.Equal(t, model.SummaryStatistics{}, summary)
}

func TestParse(t *testing.T) {
	m, err := ParseMetric(" UserCount ")
	require.NoError(t, err)
	require.Equal(t, MetricUserCount, m)
	_, err = ParseMetric("apr")
	require.Error(t, err)

	w, err := ParseWindow("1W")
	require.NoError(t, err)
	require.Equal(t, Window1w, w)
	require.Equal(t, 7*24*time.Hour, w.Duration())
	_, err = ParseWindow("1h")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	cache := &mapCache{values: map[string]float64{
		Key(ethType, usdcType, MetricTVL, ""):             30000,
		Key(ethType, usdcType, MetricVolume, Window24h):   4500,
		Key(ethType, usdcType, MetricUserCount, Window1w): 3,
	}}
	agg := NewAggregator(cache, nil)
	ctx := context.Background()

	tvl, err := agg.Lookup(ctx, testPool, "tvl", "")
	require.NoError(t, err)
	require.Equal(t, opt.Some(30000.0), tvl)

	volume, err := agg.Lookup(ctx, testPool, "Volume", "24H")
	require.NoError(t, err)
	require.Equal(t, opt.Some(4500.0), volume)

	users, err := agg.Lookup(ctx, testPool, "usercount", "1w")
	require.NoError(t, err)
	require.Equal(t, opt.Some(3.0), users)

	fee, err := agg.Lookup(ctx, testPool, "fee", "1w")
	require.NoError(t, err)
	require.False(t, fee.Present())

	_, err = agg.Lookup(ctx, testPool, "volume", "")
	require.Error(t, err, "windowed metrics need a window")
	_, err = agg.Lookup(ctx, testPool, "apr", "24h")
	require.Error(t, err)
}
