package model

import "fmt"

// CoinInfo identifies a coin and its decimal precision.
type CoinInfo struct {
	CoinType string `json:"coin_type"`
	Decimals uint8  `json:"decimals"`
}

// Pool is an immutable snapshot of a constant-product pool.
// Reserves are already normalized to decimal units.
type Pool struct {
	CoinInfoX  CoinInfo `json:"coin_info_x"`
	CoinInfoY  CoinInfo `json:"coin_info_y"`
	CoinInfoLP CoinInfo `json:"coin_info_lp"`
	AmountX    float64  `json:"amount_x"`
	AmountY    float64  `json:"amount_y"`
	FeePercent float64  `json:"fee_percent"`
}

// PriceX is the spot price of X in units of Y, 0 for an empty X reserve.
func (p Pool) PriceX() float64 {
	if p.AmountX == 0 {
		return 0
	}
	return p.AmountY / p.AmountX
}

// PriceY is the spot price of Y in units of X, 0 for an empty Y reserve.
func (p Pool) PriceY() float64 {
	if p.AmountY == 0 {
		return 0
	}
	return p.AmountX / p.AmountY
}

// Empty reports whether either reserve is zero.
func (p Pool) Empty() bool {
	return p.AmountX == 0 || p.AmountY == 0
}

// Key returns the pool identity as "<coinTypeX>-<coinTypeY>".
func (p Pool) Key() string {
	return fmt.Sprintf("%s-%s", p.CoinInfoX.CoinType, p.CoinInfoY.CoinType)
}
