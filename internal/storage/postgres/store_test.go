package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"ammQuote/internal/model"
)

// Set AMMQUOTE_TEST_PG_DSN to run against a scratch database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AMMQUOTE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMMQUOTE_TEST_PG_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `TRUNCATE pools, reference_prices, pool_window_metrics`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestPoolRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pool := model.Pool{
		CoinInfoX:  model.CoinInfo{CoinType: "0x1::coin::ETH", Decimals: 8},
		CoinInfoY:  model.CoinInfo{CoinType: "0x1::coin::USDC", Decimals: 6},
		CoinInfoLP: model.CoinInfo{CoinType: "0x1::amm::LP", Decimals: 6},
		AmountX:    10,
		AmountY:    1300,
		FeePercent: 0.3,
	}
	if err := store.UpsertPools(ctx, []model.Pool{pool}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pool.AmountX = 11
	if err := store.UpsertPools(ctx, []model.Pool{pool}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	got, err := store.Pool(ctx, pool.CoinInfoX.CoinType, pool.CoinInfoY.CoinType)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != pool {
		t.Fatalf("pool mismatch: %+v != %+v", got, pool)
	}

	_, err = store.Pool(ctx, "0x1::coin::BTC", "0x1::coin::USDC")
	if !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestLatestPrices(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertPrice(ctx, "ETH", 1500); err != nil {
		t.Fatalf("insert: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := store.InsertPrice(ctx, "ETH", 1510); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertPrice(ctx, "BTC", 30000); err != nil {
		t.Fatalf("insert: %v", err)
	}

	prices, err := store.LatestPrices(ctx)
	if err != nil {
		t.Fatalf("latest prices: %v", err)
	}
	if prices["ETH"] != 1510 || prices["BTC"] != 30000 || len(prices) != 2 {
		t.Fatalf("unexpected prices: %v", prices)
	}
}
