package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"ammQuote/internal/dex"
	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/price"
	"ammQuote/internal/quote"
	"ammQuote/internal/stats"
)

// Publisher writes metric values under cache keys.
type Publisher interface {
	SetMany(ctx context.Context, values map[string]float64, ttl time.Duration) error
}

// MetricsStore persists window rows.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	// Now is the end of every trailing window. Zero means time.Now.
	Now       time.Time
	BatchSize int
	// TTL of published keys. Zero keeps them until overwritten.
	TTL time.Duration
	// RawEvents reads on-chain swaps (integer amounts, microsecond
	// timestamps) and normalizes them against their pool snapshot.
	RawEvents bool
}

// Report counts what a run did.
type Report struct {
	Total     int
	Accepted  int
	Skipped   int
	Failed    int
	Pools     int
	Published int
}

// Aggregator turns decoded swap events into trailing-window pool statistics.
type Aggregator struct {
	cfg       Config
	pools     quote.PoolSource
	prices    price.Provider
	publisher Publisher
	store     MetricsStore
	logger    *zap.Logger

	accumulators map[string]*Accumulator
	poolOrder    []poolID
}

type poolID struct {
	x, y string
}

// NewAggregator wires an Aggregator. pools, prices and store may be nil;
// metrics that need them are then left unpublished.
func NewAggregator(cfg Config, pools quote.PoolSource, prices price.Provider, publisher Publisher, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Aggregator{
		cfg:          cfg,
		pools:        pools,
		prices:       prices,
		publisher:    publisher,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a swap events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) (Report, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Report{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.Process(ctx, file)
}

// Process reads swap events from r and publishes every pool's metrics.
func (a *Aggregator) Process(ctx context.Context, r io.Reader) (Report, error) {
	if a.publisher == nil {
		return Report{}, fmt.Errorf("publisher is nil")
	}
	now := a.cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	a.accumulators = make(map[string]*Accumulator)
	a.poolOrder = a.poolOrder[:0]

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var report Report
	oldest := now.Add(-longestWindow())
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Total++

		swap, err := a.decode(ctx, line)
		if err != nil {
			report.Failed++
			a.logger.Warn("decode swap event", zap.Error(err))
			continue
		}
		if err := validSwap(swap); err != nil {
			report.Failed++
			a.logger.Warn("invalid swap event", zap.Error(err), zap.String("pool", swap.PoolKey()))
			continue
		}

		ts := swap.Time()
		if ts.After(now) || ts.Before(oldest) {
			report.Skipped++
			continue
		}

		id := poolID{x: swap.CoinTypeX, y: swap.CoinTypeY}
		a.ensurePool(id, now)
		if err := a.addSwap(id, swap, ts); err != nil {
			report.Failed++
			a.logger.Warn("aggregate swap", zap.Error(err), zap.String("pool", swap.PoolKey()))
			continue
		}
		report.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("scan input: %w", err)
	}

	published, err := a.flush(ctx)
	report.Published = published
	report.Pools = len(a.poolOrder)
	if err != nil {
		return report, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", report.Total),
		zap.Int("accepted", report.Accepted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("pools", report.Pools),
		zap.Int("published", report.Published),
	)
	return report, nil
}

func (a *Aggregator) decode(ctx context.Context, line []byte) (model.SwapEvent, error) {
	if !a.cfg.RawEvents {
		var swap model.SwapEvent
		err := json.Unmarshal(line, &swap)
		return swap, err
	}

	var raw model.RawSwapEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.SwapEvent{}, err
	}
	if a.pools == nil {
		return model.SwapEvent{}, fmt.Errorf("raw swap %s needs a pool source", raw.PoolKey())
	}
	pool, err := a.pools.Pool(ctx, raw.CoinTypeX, raw.CoinTypeY)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("pool %s: %w", raw.PoolKey(), err)
	}
	return dex.NormalizeSwap(pool, raw)
}

// addSwap adds swap to every window that contains ts.
func (a *Aggregator) addSwap(id poolID, swap model.SwapEvent, ts time.Time) error {
	for _, window := range stats.Windows {
		acc := a.accumulators[accKey(id, window)]
		if !acc.Contains(ts) {
			continue
		}
		if err := acc.AddSwap(swap, a.prices); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) ensurePool(id poolID, now time.Time) {
	if _, ok := a.accumulators[accKey(id, stats.Windows[0])]; ok {
		return
	}
	for _, window := range stats.Windows {
		a.accumulators[accKey(id, window)] = NewAccumulator(id.x, id.y, window, now)
	}
	a.poolOrder = append(a.poolOrder, id)
}

func (a *Aggregator) flush(ctx context.Context) (int, error) {
	values := make(map[string]float64)
	rows := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	published := 0
	computedAt := time.Now().UTC()

	send := func() error {
		if len(values) > 0 {
			if err := a.publisher.SetMany(ctx, values, a.cfg.TTL); err != nil {
				return fmt.Errorf("publish metrics: %w", err)
			}
			published += len(values)
			values = make(map[string]float64)
		}
		if len(rows) > 0 && a.store != nil {
			if err := a.store.UpsertWindowMetrics(ctx, rows); err != nil {
				return fmt.Errorf("store window metrics: %w", err)
			}
		}
		rows = rows[:0]
		return nil
	}

	for _, id := range a.poolOrder {
		// Fee and TVL need the pool snapshot.
		pool, hasPool := a.loadPool(ctx, id)
		tvl := opt.None[float64]()
		if hasPool {
			tvl = TVL(pool, a.prices)
		}
		if v, ok := tvl.Get(); ok {
			values[stats.Key(id.x, id.y, stats.MetricTVL, "")] = v
		}

		for _, window := range stats.Windows {
			acc := a.accumulators[accKey(id, window)]
			volume := acc.Volume()
			if !volume.Present() {
				a.logger.Warn("volume not valued",
					zap.String("pool", id.x+"-"+id.y),
					zap.String("window", string(window)),
					zap.Uint64("swaps", acc.SwapCount),
				)
			}
			fee := opt.None[float64]()
			if hasPool {
				fee = acc.Fee(pool.FeePercent)
			}

			for _, metric := range stats.WindowedMetrics {
				var value opt.Value[float64]
				switch metric {
				case stats.MetricVolume:
					value = volume
				case stats.MetricFee:
					value = fee
				case stats.MetricUserCount:
					value = opt.Some(float64(acc.UserCount()))
				case stats.MetricTxCount:
					value = opt.Some(float64(acc.SwapCount))
				}
				if v, ok := value.Get(); ok {
					values[stats.Key(id.x, id.y, metric, window)] = v
				}
			}

			rows = append(rows, model.PoolWindowMetrics{
				CoinTypeX:   id.x,
				CoinTypeY:   id.y,
				Window:      string(window),
				WindowStart: acc.WindowStart,
				WindowEnd:   acc.WindowEnd,
				SwapCount:   acc.SwapCount,
				UserCount:   acc.UserCount(),
				VolumeX:     acc.VolumeX,
				VolumeY:     acc.VolumeY,
				VolumeUSD:   volume.Ptr(),
				FeeUSD:      fee.Ptr(),
				TVLUSD:      tvl.Ptr(),
				ComputedAt:  computedAt,
			})
		}

		if len(rows) >= a.cfg.BatchSize {
			if err := send(); err != nil {
				return published, err
			}
		}
	}
	if err := send(); err != nil {
		return published, err
	}
	return published, nil
}

func (a *Aggregator) loadPool(ctx context.Context, id poolID) (model.Pool, bool) {
	if a.pools == nil {
		return model.Pool{}, false
	}
	pool, err := a.pools.Pool(ctx, id.x, id.y)
	if err != nil {
		a.logger.Warn("pool snapshot unavailable", zap.String("pool", id.x+"-"+id.y), zap.Error(err))
		return model.Pool{}, false
	}
	return pool, true
}

func accKey(id poolID, window stats.Window) string {
	return id.x + "-" + id.y + "|" + string(window)
}

func longestWindow() time.Duration {
	var longest time.Duration
	for _, window := range stats.Windows {
		if d := window.Duration(); d > longest {
			longest = d
		}
	}
	return longest
}
