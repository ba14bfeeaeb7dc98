package price

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ammQuote/internal/opt"
)

// Provider resolves the latest reference price of a coin type.
type Provider interface {
	LatestPrice(coinType string) opt.Value[float64]
}

// Loader fetches latest reference prices keyed by symbol.
type Loader interface {
	LatestPrices(ctx context.Context) (map[string]float64, error)
}

// DefaultStables are the symbols pinned to a reference price of 1.
var DefaultStables = []string{"USDC", "USDT"}

// TableConfig describes the coin identity mapping of a Table.
type TableConfig struct {
	// Symbols maps a coin type to its price feed symbol.
	Symbols map[string]string
	// Aliases maps a coin type to the canonical coin type it stands for.
	Aliases map[string]string
	// Stables lists symbols or coin types pinned to 1.
	Stables []string
}

// Table is an in-memory Provider fed by Update or Refresh.
// Non-positive prices are never stored, so a known price is always > 0.
type Table struct {
	symbols map[string]string
	aliases map[string]string
	stables map[string]struct{}

	mu     sync.RWMutex
	prices map[string]float64
	logger *zap.Logger
}

func NewTable(cfg TableConfig, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	stables := cfg.Stables
	if stables == nil {
		stables = DefaultStables
	}

	t := &Table{
		symbols: make(map[string]string, len(cfg.Symbols)),
		aliases: make(map[string]string, len(cfg.Aliases)),
		stables: make(map[string]struct{}, len(stables)),
		prices:  make(map[string]float64),
		logger:  logger,
	}
	for coinType, symbol := range cfg.Symbols {
		t.symbols[strings.TrimSpace(coinType)] = normalizeSymbol(symbol)
	}
	for from, to := range cfg.Aliases {
		t.aliases[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	for _, s := range stables {
		t.stables[strings.TrimSpace(s)] = struct{}{}
		t.stables[normalizeSymbol(s)] = struct{}{}
	}
	return t
}

// Canonical resolves an alias to the coin type it stands for.
func (t *Table) Canonical(coinType string) string {
	if mapped, ok := t.aliases[coinType]; ok {
		return mapped
	}
	return coinType
}

// Symbol returns the price feed symbol of a coin type.
func (t *Table) Symbol(coinType string) (string, bool) {
	symbol, ok := t.symbols[t.Canonical(coinType)]
	return symbol, ok
}

// IsStable reports whether a coin type is pinned to 1.
func (t *Table) IsStable(coinType string) bool {
	canonical := t.Canonical(coinType)
	if _, ok := t.stables[canonical]; ok {
		return true
	}
	symbol, ok := t.symbols[canonical]
	if !ok {
		return false
	}
	_, ok = t.stables[symbol]
	return ok
}

// LatestPrice implements Provider.
func (t *Table) LatestPrice(coinType string) opt.Value[float64] {
	if t.IsStable(coinType) {
		return opt.Some(1.0)
	}
	symbol, ok := t.Symbol(coinType)
	if !ok {
		return opt.None[float64]()
	}
	t.mu.RLock()
	p, ok := t.prices[symbol]
	t.mu.RUnlock()
	if !ok {
		return opt.None[float64]()
	}
	return opt.Some(p)
}

// Update records the latest price of a symbol. A non-positive or
// non-finite price marks the symbol unknown.
func (t *Table) Update(symbol string, p float64) {
	symbol = normalizeSymbol(symbol)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !usable(p) {
		delete(t.prices, symbol)
		return
	}
	t.prices[symbol] = p
}

// UpdateAll records a batch of prices.
func (t *Table) UpdateAll(prices map[string]float64) {
	for symbol, p := range prices {
		if !usable(p) {
			t.logger.Warn("drop unusable reference price", zap.String("symbol", symbol), zap.Float64("price", p))
		}
		t.Update(symbol, p)
	}
}

// Refresh loads the latest prices from a Loader.
func (t *Table) Refresh(ctx context.Context, loader Loader) error {
	if loader == nil {
		return fmt.Errorf("price loader is nil")
	}
	prices, err := loader.LatestPrices(ctx)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	t.UpdateAll(prices)
	t.logger.Debug("reference prices refreshed", zap.Int("symbols", len(prices)))
	return nil
}

func usable(p float64) bool {
	return p > 0 && !math.IsInf(p, 1)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
