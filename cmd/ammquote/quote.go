package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammQuote/internal/config"
	"ammQuote/internal/model"
	"ammQuote/internal/opt"
	"ammQuote/internal/quote"
	"ammQuote/internal/rating"
)

func newQuoteInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote-in",
		Short: "Quote a swap of an exact input amount",
		RunE:  runQuoteIn,
	}
	addQuoteFlags(cmd)
	cmd.Flags().String("coin-in", "", "coin type sold")
	return cmd
}

func newQuoteOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote-out",
		Short: "Quote a swap of an exact output amount",
		RunE:  runQuoteOut,
	}
	addQuoteFlags(cmd)
	cmd.Flags().String("coin-out", "", "coin type bought")
	return cmd
}

func addQuoteFlags(cmd *cobra.Command) {
	addCommonFlags(cmd)
	addPoolFlags(cmd)
	addPriceFlags(cmd)
	cmd.Flags().Float64("amount", 0, "swap amount in decimal units")
	cmd.Flags().Float64("slippage-pct", quote.DefaultSlippagePct, "slippage tolerance percent")
	cmd.Flags().Float64("deviation-red-pct", rating.DeviationPctRed, "reference deviation percent rated RED")
	cmd.Flags().Float64("deviation-yellow-pct", rating.DeviationPctYellow, "reference deviation percent rated YELLOW")
}

// quoteSession is everything a quote needs once flags are resolved.
type quoteSession struct {
	cfg      config.Config
	logger   *zap.Logger
	backends *backends
	engine   *quote.Engine
	pool     model.Pool
	amount   float64
}

func openQuoteSession(ctx context.Context, cmd *cobra.Command) (*quoteSession, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	x, y, err := poolFlags(cmd)
	if err != nil {
		return nil, err
	}
	amount, _ := cmd.Flags().GetFloat64("amount")

	thresholds := rating.Thresholds{RedPct: cfg.DeviationRedPct, YellowPct: cfg.DeviationYellowPct}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	source, err := b.poolSource(x, y)
	if err != nil {
		b.Close()
		return nil, err
	}
	pool, err := source.Pool(ctx, x, y)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("load pool: %w", err)
	}

	logger.Debug("pool loaded",
		zap.String("pool", pool.Key()),
		zap.String("source", cfg.PoolSource),
		zap.Float64("amount_x", pool.AmountX),
		zap.Float64("amount_y", pool.AmountY),
		zap.Float64("fee_pct", pool.FeePercent),
	)

	return &quoteSession{
		cfg:      cfg,
		logger:   logger,
		backends: b,
		engine:   quote.NewEngine(b.priceTable(ctx), thresholds),
		pool:     pool,
		amount:   amount,
	}, nil
}

func (s *quoteSession) Close() {
	s.backends.Close()
	_ = s.logger.Sync()
}

func runQuoteIn(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := openQuoteSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	coinIn, _ := cmd.Flags().GetString("coin-in")
	if coinIn == "" {
		return fmt.Errorf("--coin-in is required")
	}

	q, err := session.engine.QuoteExactIn(session.pool, coinIn, session.amount, opt.Some(session.cfg.SlippagePct))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), q)
}

func runQuoteOut(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := openQuoteSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	coinOut, _ := cmd.Flags().GetString("coin-out")
	if coinOut == "" {
		return fmt.Errorf("--coin-out is required")
	}

	q, err := session.engine.QuoteExactOut(session.pool, coinOut, session.amount, opt.Some(session.cfg.SlippagePct))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), q)
}
