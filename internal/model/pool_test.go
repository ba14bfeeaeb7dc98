package model

import (
	"testing"
	"time"
)

func TestPoolSpotPrices(t *testing.T) {
	pool := Pool{AmountX: 10, AmountY: 1300}
	if got := pool.PriceX(); got != 130 {
		t.Fatalf("priceX mismatch: %v", got)
	}
	if got := pool.PriceY(); got != 10.0/1300.0 {
		t.Fatalf("priceY mismatch: %v", got)
	}
	if pool.Empty() {
		t.Fatalf("pool should not be empty")
	}
}

func TestPoolSpotPricesEmptyReserve(t *testing.T) {
	pool := Pool{AmountX: 0, AmountY: 1300}
	if got := pool.PriceX(); got != 0 {
		t.Fatalf("priceX should be 0 for empty X reserve: %v", got)
	}
	if !pool.Empty() {
		t.Fatalf("pool should be empty")
	}

	pool = Pool{AmountX: 10, AmountY: 0}
	if got := pool.PriceY(); got != 0 {
		t.Fatalf("priceY should be 0 for empty Y reserve: %v", got)
	}
}

func TestPoolKeyMatchesSwapEvent(t *testing.T) {
	pool := Pool{
		CoinInfoX: CoinInfo{CoinType: "0x1::eth::ETH", Decimals: 8},
		CoinInfoY: CoinInfo{CoinType: "0x1::usdc::USDC", Decimals: 6},
	}
	swap := SwapEvent{CoinTypeX: "0x1::eth::ETH", CoinTypeY: "0x1::usdc::USDC"}
	if pool.Key() != swap.PoolKey() {
		t.Fatalf("key mismatch: %s != %s", pool.Key(), swap.PoolKey())
	}
}

func TestSwapEventTime(t *testing.T) {
	swap := SwapEvent{Timestamp: 1700000000123}
	want := time.Date(2023, 11, 14, 22, 13, 20, 123_000_000, time.UTC)
	if !swap.Time().Equal(want) {
		t.Fatalf("time mismatch: %s != %s", swap.Time(), want)
	}
}
