package model

import "math/big"

// RawSwapEvent is a swap as emitted on chain: integer amounts in the coins'
// smallest units and a microsecond timestamp.
type RawSwapEvent struct {
	CoinTypeX   string   `json:"coin_type_x"`
	CoinTypeY   string   `json:"coin_type_y"`
	Sender      string   `json:"sender"`
	CoinTypeIn  string   `json:"coin_type_in"`
	CoinTypeOut string   `json:"coin_type_out"`
	AmountIn    *big.Int `json:"amount_in"`
	AmountOut   *big.Int `json:"amount_out"`
	TimestampUs uint64   `json:"timestamp_us"`
}

// PoolKey matches Pool.Key for the pool the swap belongs to.
func (e RawSwapEvent) PoolKey() string {
	return e.CoinTypeX + "-" + e.CoinTypeY
}

// RawAddLiquidityEvent is an on-chain liquidity deposit.
type RawAddLiquidityEvent struct {
	CoinTypeX   string   `json:"coin_type_x"`
	CoinTypeY   string   `json:"coin_type_y"`
	Sender      string   `json:"sender"`
	XAdded      *big.Int `json:"x_added"`
	YAdded      *big.Int `json:"y_added"`
	LPMinted    *big.Int `json:"lp_minted"`
	TimestampUs uint64   `json:"timestamp_us"`
}

// RawRemoveLiquidityEvent is an on-chain liquidity withdrawal.
type RawRemoveLiquidityEvent struct {
	CoinTypeX   string   `json:"coin_type_x"`
	CoinTypeY   string   `json:"coin_type_y"`
	Sender      string   `json:"sender"`
	XRemoved    *big.Int `json:"x_removed"`
	YRemoved    *big.Int `json:"y_removed"`
	LPBurned    *big.Int `json:"lp_burned"`
	TimestampUs uint64   `json:"timestamp_us"`
}

// AddLiquidityEvent is a deposit in decimal units with a millisecond timestamp.
type AddLiquidityEvent struct {
	CoinTypeX      string  `json:"coin_type_x"`
	CoinTypeY      string  `json:"coin_type_y"`
	Sender         string  `json:"sender"`
	AmountAddedX   float64 `json:"amount_added_x"`
	AmountAddedY   float64 `json:"amount_added_y"`
	AmountMintedLP float64 `json:"amount_minted_lp"`
	Timestamp      uint64  `json:"timestamp"`
}

// RemoveLiquidityEvent is a withdrawal in decimal units with a millisecond
// timestamp.
type RemoveLiquidityEvent struct {
	CoinTypeX      string  `json:"coin_type_x"`
	CoinTypeY      string  `json:"coin_type_y"`
	Sender         string  `json:"sender"`
	AmountRemovedX float64 `json:"amount_removed_x"`
	AmountRemovedY float64 `json:"amount_removed_y"`
	AmountBurnedLP float64 `json:"amount_burned_lp"`
	Timestamp      uint64  `json:"timestamp"`
}
