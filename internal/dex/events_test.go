package dex

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"ammQuote/internal/model"
)

var ethUSDCPool = model.Pool{
	CoinInfoX:  model.CoinInfo{CoinType: "0x1::coin::ETH", Decimals: 8},
	CoinInfoY:  model.CoinInfo{CoinType: "0x1::coin::USDC", Decimals: 6},
	CoinInfoLP: model.CoinInfo{CoinType: "0x1::amm::LP<ETH,USDC>", Decimals: 6},
	AmountX:    10,
	AmountY:    15000,
	FeePercent: 0.3,
}

func TestNormalizeSwapOrientsAgainstPool(t *testing.T) {
	line := `{"coin_type_x":"0x1::coin::ETH","coin_type_y":"0x1::coin::USDC","sender":"0xabc",` +
		`"coin_type_in":"0x1::coin::USDC","coin_type_out":"0x1::coin::ETH",` +
		`"amount_in":3000000000,"amount_out":199000000,"timestamp_us":1767830400123456}`
	var raw model.RawSwapEvent
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		t.Fatalf("decode raw swap: %v", err)
	}

	swap, err := NormalizeSwap(ethUSDCPool, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if swap.CoinTypeIn != "0x1::coin::USDC" || swap.CoinTypeOut != "0x1::coin::ETH" {
		t.Fatalf("unexpected orientation: %+v", swap)
	}
	// USDC in with 6 decimals, ETH out with 8.
	if swap.AmountIn != 3000 {
		t.Fatalf("expected 3000 USDC in, got %v", swap.AmountIn)
	}
	if swap.AmountOut != 1.99 {
		t.Fatalf("expected 1.99 ETH out, got %v", swap.AmountOut)
	}
	if swap.Timestamp != 1767830400123 {
		t.Fatalf("expected millisecond timestamp, got %d", swap.Timestamp)
	}
	if swap.Sender != "0xabc" || swap.PoolKey() != ethUSDCPool.Key() {
		t.Fatalf("unexpected swap: %+v", swap)
	}
}

func TestNormalizeSwapRejects(t *testing.T) {
	valid := model.RawSwapEvent{
		CoinTypeX:   "0x1::coin::ETH",
		CoinTypeY:   "0x1::coin::USDC",
		CoinTypeIn:  "0x1::coin::ETH",
		CoinTypeOut: "0x1::coin::USDC",
		AmountIn:    big.NewInt(100000000),
		AmountOut:   big.NewInt(1490000000),
		TimestampUs: 1767830400000000,
	}

	foreign := valid
	foreign.CoinTypeIn = "0x1::coin::BTC"
	if _, err := NormalizeSwap(ethUSDCPool, foreign); !errors.Is(err, ErrCoinNotInPool) {
		t.Fatalf("expected ErrCoinNotInPool, got %v", err)
	}

	otherPool := valid
	otherPool.CoinTypeX, otherPool.CoinTypeY = valid.CoinTypeY, valid.CoinTypeX
	if _, err := NormalizeSwap(ethUSDCPool, otherPool); err == nil {
		t.Fatalf("expected error for a reversed pool")
	}

	missing := valid
	missing.AmountOut = nil
	if _, err := NormalizeSwap(ethUSDCPool, missing); err == nil {
		t.Fatalf("expected error for a missing amount")
	}

	negative := valid
	negative.AmountIn = big.NewInt(-1)
	if _, err := NormalizeSwap(ethUSDCPool, negative); err == nil {
		t.Fatalf("expected error for a negative amount")
	}
}

func TestNormalizeLiquidityEvents(t *testing.T) {
	lpMinted, _ := new(big.Int).SetString("387298334620", 10)
	add, err := NormalizeAddLiquidity(ethUSDCPool, model.RawAddLiquidityEvent{
		CoinTypeX:   "0x1::coin::ETH",
		CoinTypeY:   "0x1::coin::USDC",
		Sender:      "0xabc",
		XAdded:      big.NewInt(250000000),
		YAdded:      big.NewInt(3750000000),
		LPMinted:    lpMinted,
		TimestampUs: 1767830400999999,
	})
	if err != nil {
		t.Fatalf("normalize add: %v", err)
	}
	if add.AmountAddedX != 2.5 || add.AmountAddedY != 3750 {
		t.Fatalf("unexpected added amounts: %+v", add)
	}
	if add.AmountMintedLP != 387298.33462 {
		t.Fatalf("unexpected minted lp: %v", add.AmountMintedLP)
	}
	if add.Timestamp != 1767830400999 {
		t.Fatalf("expected truncated millisecond timestamp, got %d", add.Timestamp)
	}

	remove, err := NormalizeRemoveLiquidity(ethUSDCPool, model.RawRemoveLiquidityEvent{
		CoinTypeX:   "0x1::coin::ETH",
		CoinTypeY:   "0x1::coin::USDC",
		XRemoved:    big.NewInt(100000000),
		YRemoved:    big.NewInt(1500000000),
		LPBurned:    big.NewInt(1000000),
		TimestampUs: 2000,
	})
	if err != nil {
		t.Fatalf("normalize remove: %v", err)
	}
	if remove.AmountRemovedX != 1 || remove.AmountRemovedY != 1500 || remove.AmountBurnedLP != 1 {
		t.Fatalf("unexpected removed amounts: %+v", remove)
	}
	if remove.Timestamp != 2 {
		t.Fatalf("expected 2ms, got %d", remove.Timestamp)
	}

	if _, err := NormalizeRemoveLiquidity(ethUSDCPool, model.RawRemoveLiquidityEvent{
		CoinTypeX: "0x1::coin::ETH",
		CoinTypeY: "0x1::coin::USDC",
	}); err == nil {
		t.Fatalf("expected error for missing amounts")
	}
}
