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

	"ammQuote/internal/cache"
	"ammQuote/internal/config"
	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/stats"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the cached summary statistics of a pool",
		RunE:  runStats,
	}
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("x", "", "coin type X of the pool")
	cmd.Flags().String("y", "", "coin type Y of the pool")
	cmd.Flags().String("metric", "", "print a single metric (tvl, volume, fee, usercount, txcount)")
	cmd.Flags().String("window", "", "window of the single metric (24h, 1w)")
	addRedisFlags(cmd)
	return cmd
}

func addRedisFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-addr", "localhost:6379", "Redis address")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().Duration("redis-timeout", 2*time.Second, "Redis dial/read/write timeout")
}

func newRedis(cfg config.RedisConfig, logger *zap.Logger) *cache.Redis {
	return cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Timeout:  cfg.Timeout,
	}, logger)
}

type statOutput struct {
	Pool   string             `json:"pool"`
	Metric string             `json:"metric"`
	Window string             `json:"window,omitempty"`
	Value  opt.Value[float64] `json:"value"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	x, y, err := poolFlags(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisCache := newRedis(cfg.Redis, logger)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		// Lookups still run and resolve to absent.
		logger.Warn("redis unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	pool := model.Pool{
		CoinInfoX: model.CoinInfo{CoinType: x},
		CoinInfoY: model.CoinInfo{CoinType: y},
	}
	agg := stats.NewAggregator(redisCache, logger)

	metric, _ := cmd.Flags().GetString("metric")
	if metric != "" {
		window, _ := cmd.Flags().GetString("window")
		value, err := agg.Lookup(ctx, pool, metric, window)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), statOutput{
			Pool:   pool.Key(),
			Metric: metric,
			Window: window,
			Value:  value,
		})
	}

	summary, err := agg.Summary(ctx, pool)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), summary)
}
