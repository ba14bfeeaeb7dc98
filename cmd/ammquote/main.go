package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammQuote/internal/chain"
	"ammQuote/internal/config"
	"ammQuote/internal/dex"
	"ammQuote/internal/model"
	"ammQuote/internal/price"
	"ammQuote/internal/quote"
	"ammQuote/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "ammquote",
		Short:        "Constant-product AMM quoting and pool statistics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newQuoteInCmd())
	root.AddCommand(newQuoteOutCmd())
	root.AddCommand(newQuoteBatchCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newAggregateCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newPriceCmd())
	root.AddCommand(newNormalizeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addCommonFlags registers the flags shared by every command. Defaults match
// the config defaults.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("rpc", "", "EVM RPC URL")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts of an RPC call")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("x", "", "coin type X of the pool")
	cmd.Flags().String("y", "", "coin type Y of the pool")
	cmd.Flags().String("pool-source", config.PoolSourcePostgres, "pool snapshot source (static, postgres, chain)")
	cmd.Flags().String("factory", "", "V2 factory address for the chain source")
	cmd.Flags().Float64("pool-fee-pct", 0.3, "pool fee percent for the static and chain sources")
	cmd.Flags().Float64("pool-amount-x", 0, "reserve X for the static source")
	cmd.Flags().Float64("pool-amount-y", 0, "reserve Y for the static source")
	cmd.Flags().Uint("pool-decimals-x", 0, "decimals of X for the static source")
	cmd.Flags().Uint("pool-decimals-y", 0, "decimals of Y for the static source")
}

func addPriceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("stables", []string{"USDC", "USDT"}, "symbols or coin types pinned to 1")
	cmd.Flags().String("coins", "", "coin type to price symbol (comma-separated key=value)")
	cmd.Flags().String("aliases", "", "coin type to canonical coin type (comma-separated key=value)")
	cmd.Flags().String("prices", "", "static reference prices by symbol (comma-separated key=value)")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// backends holds the connections a command opened.
type backends struct {
	cfg    config.Config
	logger *zap.Logger
	store  *postgres.Store
	chain  *chain.Client
}

// openBackends connects to Postgres when a DSN is set and to the RPC when
// pools come from the chain.
func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{cfg: cfg, logger: logger}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.store = store
	}
	if cfg.PoolSource == config.PoolSourceChain {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		b.chain = client
	}
	return b, nil
}

func (b *backends) Close() {
	if b.store != nil {
		b.store.Close()
	}
	if b.chain != nil {
		b.chain.Close()
	}
}

func (b *backends) poolSource(coinTypeX, coinTypeY string) (quote.PoolSource, error) {
	switch b.cfg.PoolSource {
	case config.PoolSourceStatic:
		sp := b.cfg.StaticPool
		return quote.StaticPool(model.Pool{
			CoinInfoX:  model.CoinInfo{CoinType: coinTypeX, Decimals: sp.DecimalsX},
			CoinInfoY:  model.CoinInfo{CoinType: coinTypeY, Decimals: sp.DecimalsY},
			AmountX:    sp.AmountX,
			AmountY:    sp.AmountY,
			FeePercent: sp.FeePercent,
		}), nil
	case config.PoolSourcePostgres:
		if b.store == nil {
			return nil, fmt.Errorf("pg dsn is required for the postgres pool source")
		}
		return b.store, nil
	case config.PoolSourceChain:
		if b.chain == nil {
			return nil, fmt.Errorf("rpc url is required for the chain pool source")
		}
		if !common.IsHexAddress(b.cfg.Factory) {
			return nil, fmt.Errorf("invalid factory address: %q", b.cfg.Factory)
		}
		return dex.NewReserveReader(b.chain, dex.ReaderConfig{
			Factory:      common.HexToAddress(b.cfg.Factory),
			FeePercent:   b.cfg.PoolFeePct,
			MaxRetries:   b.cfg.MaxRetries,
			RetryBackoff: b.cfg.RetryBackoff,
		}, b.logger), nil
	default:
		return nil, fmt.Errorf("unknown pool source: %q", b.cfg.PoolSource)
	}
}

// priceTable loads Postgres prices first so configured prices override them.
func (b *backends) priceTable(ctx context.Context) *price.Table {
	table := price.NewTable(price.TableConfig{
		Symbols: b.cfg.Coins,
		Aliases: b.cfg.Aliases,
		Stables: b.cfg.Stables,
	}, b.logger)
	if b.store != nil {
		if err := table.Refresh(ctx, b.store); err != nil {
			b.logger.Warn("reference prices unavailable", zap.Error(err))
		}
	}
	table.UpdateAll(b.cfg.Prices)
	return table
}

func poolFlags(cmd *cobra.Command) (string, string, error) {
	x, _ := cmd.Flags().GetString("x")
	y, _ := cmd.Flags().GetString("y")
	if x == "" || y == "" {
		return "", "", fmt.Errorf("--x and --y are required")
	}
	return x, y, nil
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
