package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for the aggregate command.
type AggregateConfig struct {
	Config
	Input     string
	Now       time.Time
	BatchSize int
	StatsTTL  time.Duration
	// RawEvents marks the input as on-chain swaps to normalize.
	RawEvents bool
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return AggregateConfig{}, err
	}
	base, err := fromViper(v)
	if err != nil {
		return AggregateConfig{}, err
	}

	now, err := ParseTimestamp(v.GetString("now"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("parse now: %w", err)
	}

	cfg := AggregateConfig{
		Config:    base,
		Input:     v.GetString("in"),
		Now:       now,
		BatchSize: v.GetInt("batch-size"),
		StatsTTL:  v.GetDuration("stats-ttl"),
		RawEvents: v.GetBool("raw-events"),
	}
	if cfg.BatchSize <= 0 {
		return AggregateConfig{}, fmt.Errorf("batch-size must be > 0")
	}
	return cfg, nil
}
