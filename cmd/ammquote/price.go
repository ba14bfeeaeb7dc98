package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price SYMBOL PRICE",
		Short: "Record a reference price observation in Postgres",
		Args:  cobra.ExactArgs(2),
		RunE:  runPrice,
	}
	addCommonFlags(cmd)
	return cmd
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	value, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[1], err)
	}
	if symbol == "" || value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return fmt.Errorf("price must be a positive number for a non-empty symbol")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := b.store.InsertPrice(ctx, symbol, value); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	logger.Info("reference price recorded", zap.String("symbol", symbol), zap.Float64("price", value))
	return nil
}
