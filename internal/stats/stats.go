package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
)

// Metric names a cached pool statistic.
type Metric string

const (
	MetricTVL       Metric = "tvl"
	MetricVolume    Metric = "volume"
	MetricFee       Metric = "fee"
	MetricUserCount Metric = "usercount"
	MetricTxCount   Metric = "txcount"
)

// Window names a trailing statistics window.
type Window string

const (
	Window24h Window = "24h"
	Window1w  Window = "1w"
)

// Windows lists the supported windows, shortest first.
var Windows = []Window{Window24h, Window1w}

// WindowedMetrics lists the metrics that are stored per window.
var WindowedMetrics = []Metric{MetricVolume, MetricFee, MetricUserCount, MetricTxCount}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricTVL, MetricVolume, MetricFee, MetricUserCount, MetricTxCount:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric: %q", s)
	}
}

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case Window24h, Window1w:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window: %q", s)
	}
}

// Key builds the cache key of a pool metric. TVL ignores the window.
func Key(coinTypeX, coinTypeY string, metric Metric, window Window) string {
	if metric == MetricTVL {
		return fmt.Sprintf("amm-%s-%s-%s", coinTypeX, coinTypeY, metric)
	}
	return fmt.Sprintf("amm-%s-%s-%s-%s", coinTypeX, coinTypeY, metric, window)
}

// Cache is a read-only numeric key lookup. A missing key is absent, not an
// error.
type Cache interface {
	Get(ctx context.Context, key string) (opt.Value[float64], error)
}

// Aggregator reads precomputed pool statistics from a Cache.
type Aggregator struct {
	cache  Cache
	logger *zap.Logger
}

func NewAggregator(cache Cache, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cache: cache, logger: logger}
}

// Stat looks up one metric. Cache failures resolve to absent.
func (a *Aggregator) Stat(ctx context.Context, pool model.Pool, metric Metric, window Window) opt.Value[float64] {
	if a.cache == nil {
		return opt.None[float64]()
	}
	key := Key(pool.CoinInfoX.CoinType, pool.CoinInfoY.CoinType, metric, window)
	value, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("stat lookup failed", zap.String("key", key), zap.Error(err))
		return opt.None[float64]()
	}
	return value
}

// Lookup parses a metric and window name and looks the metric up. The
// window may be empty for TVL.
func (a *Aggregator) Lookup(ctx context.Context, pool model.Pool, metric, window string) (opt.Value[float64], error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return opt.None[float64](), err
	}
	var w Window
	if m != MetricTVL || strings.TrimSpace(window) != "" {
		if w, err = ParseWindow(window); err != nil {
			return opt.None[float64](), err
		}
	}
	return a.Stat(ctx, pool, m, w), nil
}

// Summary fetches all pool statistics concurrently. It only fails when ctx
// is done before the lookups complete.
func (a *Aggregator) Summary(ctx context.Context, pool model.Pool) (model.SummaryStatistics, error) {
	var out model.SummaryStatistics
	lookups := []struct {
		metric Metric
		window Window
		dst    *opt.Value[float64]
	}{
		{MetricTVL, Window1w, &out.TVL},
		{MetricVolume, Window24h, &out.Volume24h},
		{MetricFee, Window24h, &out.Fee24h},
		{MetricUserCount, Window24h, &out.UserCount24h},
		{MetricTxCount, Window24h, &out.TransactionCount24h},
		{MetricVolume, Window1w, &out.Volume1w},
		{MetricFee, Window1w, &out.Fee1w},
		{MetricUserCount, Window1w, &out.UserCount1w},
		{MetricTxCount, Window1w, &out.TransactionCount1w},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range lookups {
		l := l
		g.Go(func() error {
			*l.dst = a.Stat(gctx, pool, l.metric, l.window)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return model.SummaryStatistics{}, err
	}
	return out, nil
}
