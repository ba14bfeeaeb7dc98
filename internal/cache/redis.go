package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ammQuote/internal/opt"
	"ammQuote/internal/stats"
)

// RedisConfig holds connection settings for the metric cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// Redis is a numeric key-value cache backed by Redis.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

var _ stats.Cache = (*Redis)(nil)

func NewRedis(cfg RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	return &Redis{client: redis.NewClient(opts), logger: logger}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the number stored at key. Missing and empty keys are absent.
func (r *Redis) Get(ctx context.Context, key string) (opt.Value[float64], error) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return opt.None[float64](), nil
		}
		return opt.None[float64](), fmt.Errorf("redis get %s: %w", key, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return opt.None[float64](), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return opt.None[float64](), fmt.Errorf("parse %s: %w", key, err)
	}
	return opt.Some(v), nil
}

// SetMany writes numeric values in one pipeline. A ttl of 0 keeps keys
// until overwritten.
func (r *Redis) SetMany(ctx context.Context, values map[string]float64, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for key, v := range values {
		pipe.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	r.logger.Debug("cache values written", zap.Int("keys", len(values)))
	return nil
}
