package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammQuote/internal/config"
	"ammQuote/internal/quote"
	"ammQuote/internal/rating"
)

func newQuoteBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote-batch",
		Short: "Quote every request of a JSONL file",
		RunE:  runQuoteBatch,
	}
	addCommonFlags(cmd)
	addPriceFlags(cmd)
	cmd.Flags().String("pool-source", config.PoolSourcePostgres, "pool snapshot source (postgres, chain)")
	cmd.Flags().String("factory", "", "V2 factory address for the chain source")
	cmd.Flags().Float64("pool-fee-pct", 0.3, "pool fee percent for the chain source")
	cmd.Flags().Float64("deviation-red-pct", rating.DeviationPctRed, "reference deviation percent rated RED")
	cmd.Flags().Float64("deviation-yellow-pct", rating.DeviationPctYellow, "reference deviation percent rated YELLOW")
	cmd.Flags().String("in", "", "input quote requests JSONL")
	cmd.Flags().String("out", "./data/quotes.jsonl", "output quotes JSONL")
	cmd.Flags().String("errors", "./data/quote_errors.jsonl", "failed requests JSONL")
	return cmd
}

func runQuoteBatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	errorsPath, _ := cmd.Flags().GetString("errors")
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	if out == "" || errorsPath == "" {
		return fmt.Errorf("output and errors paths are required")
	}

	thresholds := rating.Thresholds{RedPct: cfg.DeviationRedPct, YellowPct: cfg.DeviationYellowPct}
	if err := thresholds.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.PoolSource == config.PoolSourceStatic {
		return fmt.Errorf("quote-batch needs a postgres or chain pool source")
	}
	source, err := b.poolSource("", "")
	if err != nil {
		return err
	}
	pools := quote.NewCachedSource(source)
	engine := quote.NewEngine(b.priceTable(ctx), thresholds)

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

	logger.Info("quote batch start",
		zap.String("in", in),
		zap.String("out", out),
		zap.String("errors", errorsPath),
		zap.String("pool_source", cfg.PoolSource),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, quoted, failed int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var req quote.Request
		if err := json.Unmarshal(line, &req); err != nil {
			failed++
			writeQuoteError(errWriter, logger, quote.Result{Error: err.Error()})
			continue
		}

		res, err := engine.Quote(ctx, pools, req)
		if err != nil {
			failed++
			res.Error = err.Error()
			writeQuoteError(errWriter, logger, res)
			continue
		}

		if err := outWriter.Write(res); err != nil {
			return err
		}
		quoted++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("quote batch complete",
		zap.Int("total", total),
		zap.Int("quoted", quoted),
		zap.Int("failed", failed),
	)
	return nil
}

func writeQuoteError(w *jsonlWriter, logger *zap.Logger, res quote.Result) {
	if err := w.Write(res); err != nil {
		logger.Warn("write quote error", zap.Error(err))
	}
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
