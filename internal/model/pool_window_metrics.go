package model

import "time"

// PoolWindowMetrics stores aggregated metrics for a pool over a trailing window.
type PoolWindowMetrics struct {
	CoinTypeX   string
	CoinTypeY   string
	Window      string
	WindowStart time.Time
	WindowEnd   time.Time
	SwapCount   uint64
	UserCount   uint64
	VolumeX     float64
	VolumeY     float64
	VolumeUSD   *float64
	FeeUSD      *float64
	TVLUSD      *float64
	ComputedAt  time.Time
}
