package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ammQuote/internal/model"
)

// DefaultV2FeePercent is the swap fee of a Uniswap-V2 style pair.
const DefaultV2FeePercent = 0.3

// ErrPairNotFound is returned when the factory has no pair for two tokens.
var ErrPairNotFound = errors.New("pair not found")

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DecimalsCache caches token decimals by address.
type DecimalsCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8
}

func NewDecimalsCache() *DecimalsCache {
	return &DecimalsCache{data: make(map[common.Address]uint8)}
}

func (c *DecimalsCache) Get(address common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[address]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *DecimalsCache) Set(address common.Address, decimals uint8) {
	c.mu.Lock()
	c.data[address] = decimals
	c.mu.Unlock()
}

// ReaderConfig configures a ReserveReader.
type ReaderConfig struct {
	Factory    common.Address
	FeePercent float64
	// MaxRetries is the number of retries of a failed eth_call.
	MaxRetries   int
	RetryBackoff time.Duration
}

// ReserveReader builds pool snapshots from on-chain V2 pair reserves.
// Coin types are token contract addresses.
type ReserveReader struct {
	caller   ContractCaller
	cfg      ReaderConfig
	decimals *DecimalsCache
	logger   *zap.Logger
}

func NewReserveReader(caller ContractCaller, cfg ReaderConfig, logger *zap.Logger) *ReserveReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReserveReader{
		caller:   caller,
		cfg:      cfg,
		decimals: NewDecimalsCache(),
		logger:   logger,
	}
}

// Pool reads the current reserves of the pair for coinTypeX/coinTypeY.
func (r *ReserveReader) Pool(ctx context.Context, coinTypeX, coinTypeY string) (model.Pool, error) {
	if r.caller == nil {
		return model.Pool{}, fmt.Errorf("contract caller is nil")
	}
	if !common.IsHexAddress(coinTypeX) || !common.IsHexAddress(coinTypeY) {
		return model.Pool{}, fmt.Errorf("invalid token address: %s / %s", coinTypeX, coinTypeY)
	}
	tokenX := common.HexToAddress(coinTypeX)
	tokenY := common.HexToAddress(coinTypeY)

	pair, err := r.pairAddress(ctx, tokenX, tokenY)
	if err != nil {
		return model.Pool{}, err
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.callMethod(ctx, pair, pairABI, "token0")
	if err != nil {
		return model.Pool{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.callMethod(ctx, pair, pairABI, "getReserves")
	if err != nil {
		return model.Pool{}, err
	}
	if len(values) < 2 {
		return model.Pool{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve1: %w", err)
	}

	rawX, rawY := reserve0, reserve1
	switch token0 {
	case tokenX:
	case tokenY:
		rawX, rawY = reserve1, reserve0
	default:
		return model.Pool{}, fmt.Errorf("pair %s token0 %s matches neither token", pair.Hex(), token0.Hex())
	}

	decX, err := r.tokenDecimals(ctx, tokenX)
	if err != nil {
		return model.Pool{}, fmt.Errorf("decimals %s: %w", coinTypeX, err)
	}
	decY, err := r.tokenDecimals(ctx, tokenY)
	if err != nil {
		return model.Pool{}, fmt.Errorf("decimals %s: %w", coinTypeY, err)
	}
	decLP, err := r.tokenDecimals(ctx, pair)
	if err != nil {
		r.logger.Warn("lp decimals unavailable", zap.String("pair", pair.Hex()), zap.Error(err))
		decLP = 18
	}

	fee := r.cfg.FeePercent
	if fee == 0 {
		fee = DefaultV2FeePercent
	}

	pool := model.Pool{
		CoinInfoX:  model.CoinInfo{CoinType: coinTypeX, Decimals: decX},
		CoinInfoY:  model.CoinInfo{CoinType: coinTypeY, Decimals: decY},
		CoinInfoLP: model.CoinInfo{CoinType: pair.Hex(), Decimals: decLP},
		AmountX:    ToDecimalUnits(rawX, decX),
		AmountY:    ToDecimalUnits(rawY, decY),
		FeePercent: fee,
	}
	r.logger.Debug("pool reserves read",
		zap.String("pair", pair.Hex()),
		zap.Float64("amount_x", pool.AmountX),
		zap.Float64("amount_y", pool.AmountY),
	)
	return pool, nil
}

func (r *ReserveReader) pairAddress(ctx context.Context, tokenX, tokenY common.Address) (common.Address, error) {
	factoryABI, err := V2FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.callMethod(ctx, r.cfg.Factory, factoryABI, "getPair", tokenX, tokenY)
	if err != nil {
		return common.Address{}, err
	}
	pair, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("getPair: %w", err)
	}
	if pair == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s/%s", ErrPairNotFound, tokenX.Hex(), tokenY.Hex())
	}
	return pair, nil
}

func (r *ReserveReader) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	if decimals, ok := r.decimals.Get(token); ok {
		return decimals, nil
	}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.callMethod(ctx, token, parsed, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, err
	}
	r.decimals.Set(token, decimals)
	return decimals, nil
}

// ToDecimalUnits converts a raw integer amount to decimal units.
// Precision beyond float64's ~15 significant digits is lost.
func ToDecimalUnits(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}

func (r *ReserveReader) callMethod(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	var resp []byte
	err = withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		out, err := r.caller.CallContract(ctx, msg, nil)
		if err != nil {
			r.logger.Debug("eth_call failed", zap.String("method", method), zap.String("to", to.Hex()), zap.Error(err))
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
