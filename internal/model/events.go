package model

import "time"

// SwapEvent is a decoded pool swap with amounts in decimal units and a
// millisecond timestamp.
type SwapEvent struct {
	CoinTypeX   string  `json:"coin_type_x"`
	CoinTypeY   string  `json:"coin_type_y"`
	Sender      string  `json:"sender"`
	CoinTypeIn  string  `json:"coin_type_in"`
	CoinTypeOut string  `json:"coin_type_out"`
	AmountIn    float64 `json:"amount_in"`
	AmountOut   float64 `json:"amount_out"`
	Timestamp   uint64  `json:"timestamp"`
}

// Time returns the event timestamp in UTC.
func (e SwapEvent) Time() time.Time {
	return time.UnixMilli(int64(e.Timestamp)).UTC()
}

// PoolKey matches Pool.Key for the pool the swap belongs to.
func (e SwapEvent) PoolKey() string {
	return e.CoinTypeX + "-" + e.CoinTypeY
}
