package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
)

// Request sides.
const (
	SideIn  = "in"
	SideOut = "out"
)

// Request is one quote of a batch. CoinType is the input coin for SideIn
// and the output coin for SideOut.
type Request struct {
	CoinTypeX   string             `json:"coin_type_x"`
	CoinTypeY   string             `json:"coin_type_y"`
	Side        string             `json:"side"`
	CoinType    string             `json:"coin_type"`
	Amount      float64            `json:"amount"`
	SlippagePct opt.Value[float64] `json:"slippage_pct"`
}

// Result pairs a request with its quote or error.
type Result struct {
	Request  Request              `json:"request"`
	ExactIn  *model.QuoteExactIn  `json:"exact_in,omitempty"`
	ExactOut *model.QuoteExactOut `json:"exact_out,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Quote resolves the request's pool and quotes it.
func (e *Engine) Quote(ctx context.Context, pools PoolSource, req Request) (Result, error) {
	res := Result{Request: req}
	if pools == nil {
		return res, fmt.Errorf("pool source is nil")
	}
	pool, err := pools.Pool(ctx, req.CoinTypeX, req.CoinTypeY)
	if err != nil {
		return res, fmt.Errorf("load pool: %w", err)
	}

	switch strings.ToLower(req.Side) {
	case SideIn:
		q, err := e.QuoteExactIn(pool, req.CoinType, req.Amount, req.SlippagePct)
		if err != nil {
			return res, err
		}
		res.ExactIn = &q
	case SideOut:
		q, err := e.QuoteExactOut(pool, req.CoinType, req.Amount, req.SlippagePct)
		if err != nil {
			return res, err
		}
		res.ExactOut = &q
	default:
		return res, fmt.Errorf("unknown side: %q", req.Side)
	}
	return res, nil
}

// CachedSource memoizes pool snapshots for the lifetime of a batch.
type CachedSource struct {
	source PoolSource

	mu    sync.RWMutex
	pools map[string]model.Pool
}

func NewCachedSource(source PoolSource) *CachedSource {
	return &CachedSource{source: source, pools: make(map[string]model.Pool)}
}

func (c *CachedSource) Pool(ctx context.Context, coinTypeX, coinTypeY string) (model.Pool, error) {
	key := coinTypeX + "-" + coinTypeY
	c.mu.RLock()
	pool, ok := c.pools[key]
	c.mu.RUnlock()
	if ok {
		return pool, nil
	}

	pool, err := c.source.Pool(ctx, coinTypeX, coinTypeY)
	if err != nil {
		return model.Pool{}, err
	}
	c.mu.Lock()
	c.pools[key] = pool
	c.mu.Unlock()
	return pool, nil
}
