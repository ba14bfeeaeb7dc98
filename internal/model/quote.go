package model

import (
	"ammQuote/internal/opt"
	"ammQuote/internal/rating"
)

// QuoteExactIn is the result of a swap with a fixed input amount.
type QuoteExactIn struct {
	ExpectedAmountOut float64                 `json:"expected_amount_out"`
	MinAmountOut      float64                 `json:"min_amount_out"`
	FeeAmount         float64                 `json:"fee_amount"`
	FeeAmountDollars  opt.Value[float64]      `json:"fee_amount_dollars"`
	PriceImpactPct    float64                 `json:"price_impact_pct"`
	PriceIn           float64                 `json:"price_in"`
	PriceOut          float64                 `json:"price_out"`
	RiskRating        opt.Value[rating.Color] `json:"risk_rating"`
	FeeCurrency       CoinInfo                `json:"fee_currency"`
	PriceImpactRating rating.Color            `json:"price_impact_rating"`
}

// QuoteExactOut is the result of a swap with a fixed output amount.
type QuoteExactOut struct {
	ExpectedAmountIn    float64                 `json:"expected_amount_in"`
	MaxAmountIn         float64                 `json:"max_amount_in"`
	MaxFeeAmount        float64                 `json:"max_fee_amount"`
	MaxFeeAmountDollars opt.Value[float64]      `json:"max_fee_amount_dollars"`
	PriceImpactPct      float64                 `json:"price_impact_pct"`
	PriceIn             float64                 `json:"price_in"`
	PriceOut            float64                 `json:"price_out"`
	RiskRating          opt.Value[rating.Color] `json:"risk_rating"`
	FeeCurrency         CoinInfo                `json:"fee_currency"`
	PriceImpactRating   rating.Color            `json:"price_impact_rating"`
}

// SummaryStatistics are the cached windowed metrics of a pool.
// Absent fields have no data yet.
type SummaryStatistics struct {
	TVL                 opt.Value[float64] `json:"tvl"`
	Volume24h           opt.Value[float64] `json:"volume_24h"`
	Fee24h              opt.Value[float64] `json:"fee_24h"`
	UserCount24h        opt.Value[float64] `json:"user_count_24h"`
	TransactionCount24h opt.Value[float64] `json:"transaction_count_24h"`
	Volume1w            opt.Value[float64] `json:"volume_1w"`
	Fee1w               opt.Value[float64] `json:"fee_1w"`
	UserCount1w         opt.Value[float64] `json:"user_count_1w"`
	TransactionCount1w  opt.Value[float64] `json:"transaction_count_1w"`
}
