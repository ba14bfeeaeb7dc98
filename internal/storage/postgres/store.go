package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammQuote/internal/model"
)

// ErrPoolNotFound is returned when no snapshot exists for a coin pair.
var ErrPoolNotFound = errors.New("pool not found")

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pool snapshots, reference prices
// and window metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Pool returns the latest snapshot of a pool.
func (s *Store) Pool(ctx context.Context, coinTypeX, coinTypeY string) (model.Pool, error) {
	var p model.Pool
	var decX, decY, decLP int16
	row := s.pool.QueryRow(ctx, `
		SELECT coin_type_x, decimals_x, coin_type_y, decimals_y, coin_type_lp, decimals_lp,
			amount_x, amount_y, fee_percent
		FROM pools
		WHERE coin_type_x = $1 AND coin_type_y = $2
	`, coinTypeX, coinTypeY)
	err := row.Scan(
		&p.CoinInfoX.CoinType, &decX,
		&p.CoinInfoY.CoinType, &decY,
		&p.CoinInfoLP.CoinType, &decLP,
		&p.AmountX, &p.AmountY, &p.FeePercent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, fmt.Errorf("%w: %s-%s", ErrPoolNotFound, coinTypeX, coinTypeY)
		}
		return model.Pool{}, err
	}
	p.CoinInfoX.Decimals = uint8(decX)
	p.CoinInfoY.Decimals = uint8(decY)
	p.CoinInfoLP.Decimals = uint8(decLP)
	return p, nil
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				coin_type_x, decimals_x, coin_type_y, decimals_y, coin_type_lp, decimals_lp,
				amount_x, amount_y, fee_percent, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (coin_type_x, coin_type_y)
			DO UPDATE SET
				decimals_x = EXCLUDED.decimals_x,
				decimals_y = EXCLUDED.decimals_y,
				coin_type_lp = EXCLUDED.coin_type_lp,
				decimals_lp = EXCLUDED.decimals_lp,
				amount_x = EXCLUDED.amount_x,
				amount_y = EXCLUDED.amount_y,
				fee_percent = EXCLUDED.fee_percent,
				updated_at = now()
		`,
			pool.CoinInfoX.CoinType,
			int16(pool.CoinInfoX.Decimals),
			pool.CoinInfoY.CoinType,
			int16(pool.CoinInfoY.Decimals),
			pool.CoinInfoLP.CoinType,
			int16(pool.CoinInfoLP.Decimals),
			pool.AmountX,
			pool.AmountY,
			pool.FeePercent,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestPrices returns the most recent reference price per symbol.
func (s *Store) LatestPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (symbol) symbol, price
		FROM reference_prices
		ORDER BY symbol, observed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, err
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

// InsertPrice records a reference price observation.
func (s *Store) InsertPrice(ctx context.Context, symbol string, price float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reference_prices (symbol, price, observed_at) VALUES ($1, $2, now())
	`, symbol, price)
	return err
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				coin_type_x, coin_type_y, window_name, window_start_ts, window_end_ts,
				swap_count, user_count, volume_x, volume_y, volume_usd, fee_usd, tvl_usd,
				computed_at, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (coin_type_x, coin_type_y, window_name, window_end_ts)
			DO UPDATE SET
				window_start_ts = EXCLUDED.window_start_ts,
				swap_count = EXCLUDED.swap_count,
				user_count = EXCLUDED.user_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				volume_usd = EXCLUDED.volume_usd,
				fee_usd = EXCLUDED.fee_usd,
				tvl_usd = EXCLUDED.tvl_usd,
				computed_at = EXCLUDED.computed_at,
				updated_at = now()
		`,
			m.CoinTypeX,
			m.CoinTypeY,
			m.Window,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.UserCount),
			m.VolumeX,
			m.VolumeY,
			m.VolumeUSD,
			m.FeeUSD,
			m.TVLUSD,
			m.ComputedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
