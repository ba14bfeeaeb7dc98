package dex

import (
	"errors"
	"fmt"
	"math/big"

	"ammQuote/internal/model"
)

// ErrCoinNotInPool is returned when an event names a coin its pool lacks.
var ErrCoinNotInPool = errors.New("coin type not in pool")

// MicrosToMillis converts an on-chain microsecond timestamp to milliseconds.
func MicrosToMillis(us uint64) uint64 {
	return us / 1000
}

// NormalizeSwap orients a raw swap against pool and converts its amounts to
// decimal units with the decimals of the input and output coins.
func NormalizeSwap(pool model.Pool, raw model.RawSwapEvent) (model.SwapEvent, error) {
	if err := samePool(pool, raw.CoinTypeX, raw.CoinTypeY); err != nil {
		return model.SwapEvent{}, err
	}
	coinIn, err := poolCoin(pool, raw.CoinTypeIn)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("coin in: %w", err)
	}
	coinOut, err := poolCoin(pool, raw.CoinTypeOut)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("coin out: %w", err)
	}
	if err := checkAmounts(raw.AmountIn, raw.AmountOut); err != nil {
		return model.SwapEvent{}, err
	}

	return model.SwapEvent{
		CoinTypeX:   pool.CoinInfoX.CoinType,
		CoinTypeY:   pool.CoinInfoY.CoinType,
		Sender:      raw.Sender,
		CoinTypeIn:  coinIn.CoinType,
		CoinTypeOut: coinOut.CoinType,
		AmountIn:    ToDecimalUnits(raw.AmountIn, coinIn.Decimals),
		AmountOut:   ToDecimalUnits(raw.AmountOut, coinOut.Decimals),
		Timestamp:   MicrosToMillis(raw.TimestampUs),
	}, nil
}

// NormalizeAddLiquidity converts a raw deposit with the pool's X, Y and LP
// decimals.
func NormalizeAddLiquidity(pool model.Pool, raw model.RawAddLiquidityEvent) (model.AddLiquidityEvent, error) {
	if err := samePool(pool, raw.CoinTypeX, raw.CoinTypeY); err != nil {
		return model.AddLiquidityEvent{}, err
	}
	if err := checkAmounts(raw.XAdded, raw.YAdded, raw.LPMinted); err != nil {
		return model.AddLiquidityEvent{}, err
	}
	return model.AddLiquidityEvent{
		CoinTypeX:      pool.CoinInfoX.CoinType,
		CoinTypeY:      pool.CoinInfoY.CoinType,
		Sender:         raw.Sender,
		AmountAddedX:   ToDecimalUnits(raw.XAdded, pool.CoinInfoX.Decimals),
		AmountAddedY:   ToDecimalUnits(raw.YAdded, pool.CoinInfoY.Decimals),
		AmountMintedLP: ToDecimalUnits(raw.LPMinted, pool.CoinInfoLP.Decimals),
		Timestamp:      MicrosToMillis(raw.TimestampUs),
	}, nil
}

// NormalizeRemoveLiquidity converts a raw withdrawal with the pool's X, Y
// and LP decimals.
func NormalizeRemoveLiquidity(pool model.Pool, raw model.RawRemoveLiquidityEvent) (model.RemoveLiquidityEvent, error) {
	if err := samePool(pool, raw.CoinTypeX, raw.CoinTypeY); err != nil {
		return model.RemoveLiquidityEvent{}, err
	}
	if err := checkAmounts(raw.XRemoved, raw.YRemoved, raw.LPBurned); err != nil {
		return model.RemoveLiquidityEvent{}, err
	}
	return model.RemoveLiquidityEvent{
		CoinTypeX:      pool.CoinInfoX.CoinType,
		CoinTypeY:      pool.CoinInfoY.CoinType,
		Sender:         raw.Sender,
		AmountRemovedX: ToDecimalUnits(raw.XRemoved, pool.CoinInfoX.Decimals),
		AmountRemovedY: ToDecimalUnits(raw.YRemoved, pool.CoinInfoY.Decimals),
		AmountBurnedLP: ToDecimalUnits(raw.LPBurned, pool.CoinInfoLP.Decimals),
		Timestamp:      MicrosToMillis(raw.TimestampUs),
	}, nil
}

func samePool(pool model.Pool, coinTypeX, coinTypeY string) error {
	if coinTypeX != pool.CoinInfoX.CoinType || coinTypeY != pool.CoinInfoY.CoinType {
		return fmt.Errorf("event pool %s-%s does not match %s", coinTypeX, coinTypeY, pool.Key())
	}
	return nil
}

func poolCoin(pool model.Pool, coinType string) (model.CoinInfo, error) {
	switch coinType {
	case pool.CoinInfoX.CoinType:
		return pool.CoinInfoX, nil
	case pool.CoinInfoY.CoinType:
		return pool.CoinInfoY, nil
	default:
		return model.CoinInfo{}, fmt.Errorf("%w: %s", ErrCoinNotInPool, coinType)
	}
}

func checkAmounts(amounts ...*big.Int) error {
	for _, amount := range amounts {
		if amount == nil {
			return fmt.Errorf("missing amount")
		}
		if amount.Sign() < 0 {
			return fmt.Errorf("negative amount %s", amount)
		}
	}
	return nil
}
