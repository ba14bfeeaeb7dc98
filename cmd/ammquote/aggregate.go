package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammQuote/internal/aggregate"
	"ammQuote/internal/config"
	"ammQuote/internal/quote"
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Publish trailing-window pool statistics from swap events",
		RunE:  runAggregate,
	}
	addCommonFlags(cmd)
	addPriceFlags(cmd)
	addRedisFlags(cmd)
	cmd.Flags().String("pool-source", config.PoolSourcePostgres, "pool snapshot source for fee and TVL (postgres, chain)")
	cmd.Flags().String("factory", "", "V2 factory address for the chain source")
	cmd.Flags().Float64("pool-fee-pct", 0.3, "pool fee percent for the chain source")
	cmd.Flags().String("in", "", "input swap events JSONL")
	cmd.Flags().String("now", "", "end of every window (unix ms or RFC3339), default current time")
	cmd.Flags().Int("batch-size", 1000, "window rows per flush")
	cmd.Flags().Duration("stats-ttl", 0, "expiry of published keys, 0 keeps them")
	cmd.Flags().Bool("raw-events", false, "input holds on-chain swaps with integer amounts and microsecond timestamps")
	return cmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	var pools quote.PoolSource
	var store aggregate.MetricsStore
	if cfg.PoolSource != config.PoolSourceStatic {
		source, err := b.poolSource("", "")
		if err != nil {
			if cfg.RawEvents {
				return fmt.Errorf("raw events need pool snapshots: %w", err)
			}
			logger.Warn("pool snapshots unavailable, fee and tvl skipped", zap.Error(err))
		} else {
			pools = quote.NewCachedSource(source)
		}
	} else if cfg.RawEvents {
		return fmt.Errorf("raw events need a postgres or chain pool source")
	}
	if b.store != nil {
		if err := b.store.EnsureSchema(ctx); err != nil {
			return err
		}
		store = b.store
	}

	redisCache := newRedis(cfg.Redis, logger)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		Now:       now,
		BatchSize: cfg.BatchSize,
		TTL:       cfg.StatsTTL,
		RawEvents: cfg.RawEvents,
	}, pools, b.priceTable(ctx), redisCache, store, logger)

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redis", cfg.Redis.Addr),
		zap.Time("now", now),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("stats_ttl", cfg.StatsTTL),
		zap.Bool("raw_events", cfg.RawEvents),
	)

	_, err = agg.Run(ctx, cfg.Input)
	return err
}
