package quote

import (
	"context"
	"fmt"

	"ammQuote/internal/model"
)

// PoolSource returns the current snapshot of the pool keyed by its coin pair.
type PoolSource interface {
	Pool(ctx context.Context, coinTypeX, coinTypeY string) (model.Pool, error)
}

// StaticPool serves a fixed snapshot.
type StaticPool model.Pool

func (s StaticPool) Pool(_ context.Context, coinTypeX, coinTypeY string) (model.Pool, error) {
	if s.CoinInfoX.CoinType != coinTypeX || s.CoinInfoY.CoinType != coinTypeY {
		return model.Pool{}, fmt.Errorf("pool %s-%s not found", coinTypeX, coinTypeY)
	}
	return model.Pool(s), nil
}
