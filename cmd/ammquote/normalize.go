package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammQuote/internal/config"
	"ammQuote/internal/dex"
	"ammQuote/internal/model"
	"ammQuote/internal/quote"
)

// Raw event kinds.
const (
	kindSwap   = "swap"
	kindAdd    = "add"
	kindRemove = "remove"
)

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Convert raw pool events to decimal units and millisecond timestamps",
		RunE:  runNormalize,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("pool-source", config.PoolSourcePostgres, "pool snapshot source (postgres, chain)")
	cmd.Flags().String("factory", "", "V2 factory address for the chain source")
	cmd.Flags().Float64("pool-fee-pct", 0.3, "pool fee percent for the chain source")
	cmd.Flags().String("kind", kindSwap, "event kind (swap, add, remove)")
	cmd.Flags().String("in", "", "input raw events JSONL")
	cmd.Flags().String("out", "./data/events.jsonl", "output normalized events JSONL")
	cmd.Flags().String("errors", "./data/event_errors.jsonl", "failed events JSONL")
	return cmd
}

type normalizeError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, _ := cmd.Flags().GetString("kind")
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	errorsPath, _ := cmd.Flags().GetString("errors")
	switch kind {
	case kindSwap, kindAdd, kindRemove:
	default:
		return fmt.Errorf("unknown event kind: %q", kind)
	}
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	if out == "" || errorsPath == "" {
		return fmt.Errorf("output and errors paths are required")
	}
	if cfg.PoolSource == config.PoolSourceStatic {
		return fmt.Errorf("normalize needs a postgres or chain pool source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	source, err := b.poolSource("", "")
	if err != nil {
		return err
	}
	pools := quote.NewCachedSource(source)

	inputFile, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := newJSONLWriter(out)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(errorsPath)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("normalize start",
		zap.String("kind", kind),
		zap.String("in", in),
		zap.String("out", out),
		zap.String("pool_source", cfg.PoolSource),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, normalized, failed int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		event, err := normalizeEvent(ctx, pools, kind, line)
		if err != nil {
			failed++
			if werr := errWriter.Write(normalizeError{Line: string(line), Error: err.Error()}); werr != nil {
				logger.Warn("write normalize error", zap.Error(werr))
			}
			continue
		}
		if err := outWriter.Write(event); err != nil {
			return err
		}
		normalized++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("normalize complete",
		zap.Int("total", total),
		zap.Int("normalized", normalized),
		zap.Int("failed", failed),
	)
	return nil
}

func normalizeEvent(ctx context.Context, pools quote.PoolSource, kind string, line []byte) (interface{}, error) {
	switch kind {
	case kindAdd:
		var raw model.RawAddLiquidityEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, err
		}
		pool, err := pools.Pool(ctx, raw.CoinTypeX, raw.CoinTypeY)
		if err != nil {
			return nil, fmt.Errorf("load pool: %w", err)
		}
		return dex.NormalizeAddLiquidity(pool, raw)
	case kindRemove:
		var raw model.RawRemoveLiquidityEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, err
		}
		pool, err := pools.Pool(ctx, raw.CoinTypeX, raw.CoinTypeY)
		if err != nil {
			return nil, fmt.Errorf("load pool: %w", err)
		}
		return dex.NormalizeRemoveLiquidity(pool, raw)
	default:
		var raw model.RawSwapEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, err
		}
		pool, err := pools.Pool(ctx, raw.CoinTypeX, raw.CoinTypeY)
		if err != nil {
			return nil, fmt.Errorf("load pool: %w", err)
		}
		return dex.NormalizeSwap(pool, raw)
	}
}
