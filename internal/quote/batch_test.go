package quote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/rating"
)

type countingSource struct {
	pool  model.Pool
	calls int
}

func (c *countingSource) Pool(ctx context.Context, coinTypeX, coinTypeY string) (model.Pool, error) {
	c.calls++
	return StaticPool(c.pool).Pool(ctx, coinTypeX, coinTypeY)
}

func batchPool() model.Pool {
	return model.Pool{
		CoinInfoX:  model.CoinInfo{CoinType: "0x1::coin::ETH", Decimals: 8},
		CoinInfoY:  model.CoinInfo{CoinType: "0x1::coin::USDC", Decimals: 6},
		AmountX:    100,
		AmountY:    1300,
		FeePercent: 0.3,
	}
}

func TestQuoteDispatchesBySide(t *testing.T) {
	engine := NewEngine(nil, rating.DefaultThresholds())
	source := StaticPool(batchPool())

	in, err := engine.Quote(context.Background(), source, Request{
		CoinTypeX: "0x1::coin::ETH",
		CoinTypeY: "0x1::coin::USDC",
		Side:      SideIn,
		CoinType:  "0x1::coin::ETH",
		Amount:    10,
	})
	require.NoError(t, err)
	require.NotNil(t, in.ExactIn)
	require.Nil(t, in.ExactOut)
	require.InDelta(t, 117.8594, in.ExactIn.ExpectedAmountOut, 1e-4)

	out, err := engine.Quote(context.Background(), source, Request{
		CoinTypeX:   "0x1::coin::ETH",
		CoinTypeY:   "0x1::coin::USDC",
		Side:        "OUT",
		CoinType:    "0x1::coin::USDC",
		Amount:      100,
		SlippagePct: opt.Some(1.0),
	})
	require.NoError(t, err)
	require.NotNil(t, out.ExactOut)
	require.InDelta(t, out.ExactOut.ExpectedAmountIn*1.01, out.ExactOut.MaxAmountIn, 1e-9)

	_, err = engine.Quote(context.Background(), source, Request{
		CoinTypeX: "0x1::coin::ETH",
		CoinTypeY: "0x1::coin::USDC",
		Side:      "sideways",
		CoinType:  "0x1::coin::ETH",
		Amount:    1,
	})
	require.Error(t, err)

	_, err = engine.Quote(context.Background(), source, Request{
		CoinTypeX: "0x1::coin::ETH",
		CoinTypeY: "0x1::coin::USDC",
		Side:      SideOut,
		CoinType:  "0x1::coin::ETH",
		Amount:    100,
	})
	require.True(t, errors.Is(err, ErrInsufficientReserves))
}

func TestRequestSlippageAbsentWhenOmitted(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"side":"in","amount":1}`), &req))
	require.False(t, req.SlippagePct.Present())

	require.NoError(t, json.Unmarshal([]byte(`{"side":"in","amount":1,"slippage_pct":0.5}`), &req))
	v, ok := req.SlippagePct.Get()
	require.True(t, ok)
	require.Equal(t, 0.5, v)
}

func TestCachedSourceLoadsOnce(t *testing.T) {
	inner := &countingSource{pool: batchPool()}
	cached := NewCachedSource(inner)

	for i := 0; i < 3; i++ {
		_, err := cached.Pool(context.Background(), "0x1::coin::ETH", "0x1::coin::USDC")
		require.NoError(t, err)
	}
	require.Equal(t, 1, inner.calls)

	_, err := cached.Pool(context.Background(), "0x1::coin::BTC", "0x1::coin::USDC")
	require.Error(t, err)
	_, err = cached.Pool(context.Background(), "0x1::coin::BTC", "0x1::coin::USDC")
	require.Error(t, err)
	require.Equal(t, 3, inner.calls)
}
