package quote

import (
	"errors"
	"fmt"
	"math"

	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/price"
	"ammQuote/internal/rating"
)

// DefaultSlippagePct is applied when a request carries no slippage.
const DefaultSlippagePct = 0.1

var (
	ErrEmptyPool            = errors.New("pool is empty")
	ErrInsufficientReserves = errors.New("insufficient pool reserves")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidFee           = errors.New("invalid fee percent")
	ErrInvalidReserves      = errors.New("invalid pool reserves")
	ErrUnknownCoin          = errors.New("coin type not in pool")
)

// Engine quotes swaps against constant-product pool snapshots.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	prices     price.Provider
	thresholds rating.Thresholds
}

// NewEngine builds an Engine. A nil provider disables reference ratings.
func NewEngine(prices price.Provider, thresholds rating.Thresholds) *Engine {
	return &Engine{prices: prices, thresholds: thresholds}
}

// sides is a pool oriented in the direction of a trade.
type sides struct {
	inReserve  float64
	outReserve float64
	coinIn     model.CoinInfo
	coinOut    model.CoinInfo
	feeRate    float64
}

func orient(pool model.Pool, coinIn string) (sides, error) {
	s := sides{feeRate: pool.FeePercent / 100.0}
	switch coinIn {
	case pool.CoinInfoX.CoinType:
		s.inReserve, s.outReserve = pool.AmountX, pool.AmountY
		s.coinIn, s.coinOut = pool.CoinInfoX, pool.CoinInfoY
	case pool.CoinInfoY.CoinType:
		s.inReserve, s.outReserve = pool.AmountY, pool.AmountX
		s.coinIn, s.coinOut = pool.CoinInfoY, pool.CoinInfoX
	default:
		return sides{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coinIn)
	}
	if !finite(pool.FeePercent) || pool.FeePercent < 0 || pool.FeePercent >= 100 {
		return sides{}, fmt.Errorf("%w: %v", ErrInvalidFee, pool.FeePercent)
	}
	if pool.Empty() {
		return sides{}, ErrEmptyPool
	}
	if s.inReserve < 0 || s.outReserve < 0 || !finite(s.inReserve) || !finite(s.outReserve) {
		return sides{}, fmt.Errorf("%w: %v/%v", ErrInvalidReserves, s.inReserve, s.outReserve)
	}
	return s, nil
}

// QuoteExactIn quotes a swap of exactly amountIn of coinTypeIn.
func (e *Engine) QuoteExactIn(pool model.Pool, coinTypeIn string, amountIn float64, slippagePct opt.Value[float64]) (model.QuoteExactIn, error) {
	s, err := orient(pool, coinTypeIn)
	if err != nil {
		return model.QuoteExactIn{}, err
	}
	if !positive(amountIn) {
		return model.QuoteExactIn{}, fmt.Errorf("%w: amount in %v", ErrInvalidAmount, amountIn)
	}
	slippage, err := slippageRate(slippagePct)
	if err != nil {
		return model.QuoteExactIn{}, err
	}

	amountInAfterFee := amountIn * (1 - s.feeRate)
	expectedAmountOutNoFee := amountIn * s.outReserve / (s.inReserve + amountIn)
	expectedAmountOut := amountInAfterFee * s.outReserve / (s.inReserve + amountInAfterFee)
	minAmountOut := expectedAmountOut * (1 - slippage)
	feeAmount := amountIn * s.feeRate

	instantaneousAmountOut := (s.outReserve / s.inReserve) * amountIn
	priceImpactPct := 100.0 * (instantaneousAmountOut - expectedAmountOutNoFee) / instantaneousAmountOut
	priceIn := expectedAmountOut / amountIn
	priceOut := amountIn / expectedAmountOut

	refIn, refOut := e.references(s)
	return model.QuoteExactIn{
		ExpectedAmountOut: expectedAmountOut,
		MinAmountOut:      minAmountOut,
		FeeAmount:         feeAmount,
		FeeAmountDollars:  rating.FeeInReference(feeAmount, refIn),
		PriceImpactPct:    priceImpactPct,
		PriceIn:           priceIn,
		PriceOut:          priceOut,
		RiskRating:        e.riskRating(refIn, priceIn, refOut, priceOut),
		FeeCurrency:       s.coinIn,
		PriceImpactRating: rating.PriceImpact(priceImpactPct),
	}, nil
}

// QuoteExactOut quotes the input needed to receive exactly amountOut of
// coinTypeOut.
func (e *Engine) QuoteExactOut(pool model.Pool, coinTypeOut string, amountOut float64, slippagePct opt.Value[float64]) (model.QuoteExactOut, error) {
	var coinTypeIn string
	switch coinTypeOut {
	case pool.CoinInfoY.CoinType:
		coinTypeIn = pool.CoinInfoX.CoinType
	case pool.CoinInfoX.CoinType:
		coinTypeIn = pool.CoinInfoY.CoinType
	default:
		return model.QuoteExactOut{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coinTypeOut)
	}
	s, err := orient(pool, coinTypeIn)
	if err != nil {
		return model.QuoteExactOut{}, err
	}
	if !positive(amountOut) {
		return model.QuoteExactOut{}, fmt.Errorf("%w: amount out %v", ErrInvalidAmount, amountOut)
	}
	if amountOut >= s.outReserve {
		return model.QuoteExactOut{}, fmt.Errorf("%w: want %v, reserve %v", ErrInsufficientReserves, amountOut, s.outReserve)
	}
	slippage, err := slippageRate(slippagePct)
	if err != nil {
		return model.QuoteExactOut{}, err
	}

	expectedAmountIn := s.inReserve * amountOut / ((s.outReserve - amountOut) * (1 - s.feeRate))
	maxAmountIn := expectedAmountIn * (1 + slippage)
	maxFeeAmount := maxAmountIn * s.feeRate

	// Measured against the solved input, net of fee.
	instantaneousAmountOut := (s.outReserve / s.inReserve) * expectedAmountIn * (1 - s.feeRate)
	priceImpactPct := 100.0 * (instantaneousAmountOut - amountOut) / instantaneousAmountOut
	priceIn := amountOut / expectedAmountIn
	priceOut := expectedAmountIn / amountOut

	refIn, refOut := e.references(s)
	return model.QuoteExactOut{
		ExpectedAmountIn:    expectedAmountIn,
		MaxAmountIn:         maxAmountIn,
		MaxFeeAmount:        maxFeeAmount,
		MaxFeeAmountDollars: rating.FeeInReference(maxFeeAmount, refIn),
		PriceImpactPct:      priceImpactPct,
		PriceIn:             priceIn,
		PriceOut:            priceOut,
		RiskRating:          e.riskRating(refIn, priceIn, refOut, priceOut),
		FeeCurrency:         s.coinIn,
		PriceImpactRating:   rating.PriceImpact(priceImpactPct),
	}, nil
}

func (e *Engine) references(s sides) (opt.Value[float64], opt.Value[float64]) {
	if e.prices == nil {
		return opt.None[float64](), opt.None[float64]()
	}
	return e.prices.LatestPrice(s.coinIn.CoinType), e.prices.LatestPrice(s.coinOut.CoinType)
}

func (e *Engine) riskRating(refIn opt.Value[float64], priceIn float64, refOut opt.Value[float64], priceOut float64) opt.Value[rating.Color] {
	ratio := rating.DeviationRatio(refIn, priceIn, refOut, priceOut)
	return opt.FlatMap(ratio, func(r float64) opt.Value[rating.Color] {
		return rating.Deviation(rating.Params{
			Ratio:     r,
			Price:     priceOut,
			RedPct:    e.thresholds.RedPct,
			YellowPct: e.thresholds.YellowPct,
		})
	})
}

func slippageRate(pct opt.Value[float64]) (float64, error) {
	v := pct.OrElse(DefaultSlippagePct)
	if !finite(v) || v < 0 || v >= 100 {
		return 0, fmt.Errorf("%w: slippage %v", ErrInvalidAmount, v)
	}
	return v / 100.0, nil
}

func positive(f float64) bool {
	return f > 0 && finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
