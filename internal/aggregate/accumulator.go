package aggregate

import (
	"fmt"
	"math"
	"time"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/price"
	"ammQuote/internal/stats"
)

// Accumulator holds aggregate values for one pool over one trailing window.
type Accumulator struct {
	CoinTypeX   string
	CoinTypeY   string
	Window      stats.Window
	WindowStart time.Time
	WindowEnd   time.Time
	SwapCount   uint64
	VolumeX     float64
	VolumeY     float64
	// VolumeRef sums the reference value of every valued swap.
	VolumeRef float64
	Valued    uint64
	Unvalued  uint64

	senders map[string]struct{}
}

func NewAccumulator(coinTypeX, coinTypeY string, window stats.Window, now time.Time) *Accumulator {
	return &Accumulator{
		CoinTypeX:   coinTypeX,
		CoinTypeY:   coinTypeY,
		Window:      window,
		WindowStart: now.Add(-window.Duration()),
		WindowEnd:   now,
		senders:     make(map[string]struct{}),
	}
}

// Contains reports whether t falls in [WindowStart, WindowEnd].
func (a *Accumulator) Contains(t time.Time) bool {
	return !t.Before(a.WindowStart) && !t.After(a.WindowEnd)
}

// AddSwap folds one swap into the window. prices may be nil.
func (a *Accumulator) AddSwap(swap model.SwapEvent, prices price.Provider) error {
	switch swap.CoinTypeIn {
	case a.CoinTypeX:
		a.VolumeX += swap.AmountIn
		a.VolumeY += swap.AmountOut
	case a.CoinTypeY:
		a.VolumeY += swap.AmountIn
		a.VolumeX += swap.AmountOut
	default:
		return fmt.Errorf("coin %s not in pool %s-%s", swap.CoinTypeIn, a.CoinTypeX, a.CoinTypeY)
	}

	a.SwapCount++
	if swap.Sender != "" {
		a.senders[swap.Sender] = struct{}{}
	}

	value := SwapValue(swap, prices)
	if v, ok := value.Get(); ok {
		a.VolumeRef += v
		a.Valued++
	} else {
		a.Unvalued++
	}
	return nil
}

// UserCount returns the number of distinct senders.
func (a *Accumulator) UserCount() uint64 {
	return uint64(len(a.senders))
}

// Volume is the reference value of the window's swaps. It is absent when
// swaps happened but none of them could be valued.
func (a *Accumulator) Volume() opt.Value[float64] {
	if a.SwapCount > 0 && a.Valued == 0 {
		return opt.None[float64]()
	}
	return opt.Some(a.VolumeRef)
}

// Fee applies the pool fee to Volume.
func (a *Accumulator) Fee(feePercent float64) opt.Value[float64] {
	return opt.Map(a.Volume(), func(v float64) float64 {
		return v * feePercent / 100
	})
}

// SwapValue values the input side of a swap, falling back to the output side.
func SwapValue(swap model.SwapEvent, prices price.Provider) opt.Value[float64] {
	if prices == nil {
		return opt.None[float64]()
	}
	in := opt.Map(prices.LatestPrice(swap.CoinTypeIn), func(p float64) float64 {
		return swap.AmountIn * p
	})
	return in.Or(opt.Map(prices.LatestPrice(swap.CoinTypeOut), func(p float64) float64 {
		return swap.AmountOut * p
	}))
}

// TVL values both reserves of a pool. A side without a reference price is
// priced through the pool's spot price.
func TVL(pool model.Pool, prices price.Provider) opt.Value[float64] {
	if prices == nil {
		return opt.None[float64]()
	}
	pX := prices.LatestPrice(pool.CoinInfoX.CoinType)
	pY := prices.LatestPrice(pool.CoinInfoY.CoinType)

	px, okX := pX.Get()
	py, okY := pY.Get()
	switch {
	case okX && okY:
	case okX && pool.PriceY() > 0:
		py = px * pool.PriceY()
	case okY && pool.PriceX() > 0:
		px = py * pool.PriceX()
	default:
		return opt.None[float64]()
	}

	tvl := pool.AmountX*px + pool.AmountY*py
	if math.IsNaN(tvl) || math.IsInf(tvl, 0) {
		return opt.None[float64]()
	}
	return opt.Some(tvl)
}

func validSwap(swap model.SwapEvent) error {
	if swap.CoinTypeX == "" || swap.CoinTypeY == "" {
		return fmt.Errorf("missing pool coin types")
	}
	if swap.CoinTypeIn == swap.CoinTypeOut {
		return fmt.Errorf("coin in equals coin out: %s", swap.CoinTypeIn)
	}
	for _, coin := range []string{swap.CoinTypeIn, swap.CoinTypeOut} {
		if coin != swap.CoinTypeX && coin != swap.CoinTypeY {
			return fmt.Errorf("coin %s not in pool %s", coin, swap.PoolKey())
		}
	}
	for _, amount := range []float64{swap.AmountIn, swap.AmountOut} {
		if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("invalid amount: %v", amount)
		}
	}
	if swap.Timestamp == 0 {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}
