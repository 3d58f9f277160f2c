package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"soltrace/internal/backfill"
	"soltrace/internal/config"
	"soltrace/internal/idl"
	"soltrace/internal/observability"
	"soltrace/internal/pipeline"
	"soltrace/internal/solana"
	"soltrace/internal/storage"
	"soltrace/internal/validate"
)

func main() {
	cmd := &cobra.Command{
		Use:          "soltrace-backfill",
		Short:        "Historical Solana program event ingestion",
		SilenceUsage: true,
		RunE:         runBackfill,
	}

	cmd.Flags().StringSlice("programs", nil, "program ids to backfill (comma-separated)")
	cmd.Flags().String("idl-dir", "", "directory of IDL JSON files")
	cmd.Flags().String("db-url", "", "storage URL (sqlite:, postgres://, or mongodb://)")
	cmd.Flags().String("rpc-url", "", "Solana JSON-RPC HTTP endpoint")
	cmd.Flags().Int("limit", 1000, "maximum signatures fetched per program")
	cmd.Flags().Int("batch-size", 10, "signatures processed per concurrency-bounded batch")
	cmd.Flags().Duration("batch-delay", 100*time.Millisecond, "delay between batches")
	cmd.Flags().Int("concurrency", 10, "maximum concurrent transaction fetches")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per transaction fetch")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", "", "Prometheus metrics HTTP address, empty to disable")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadBackfill(cmd.Flags())
	if err != nil {
		return err
	}

	if err := validate.Backfill(validate.BackfillConfig{
		Programs:    cfg.Programs,
		IDLDir:      cfg.IDLDir,
		DatabaseURL: cfg.DatabaseURL,
		RPCURL:      cfg.RPCURL,
		Limit:       cfg.Limit,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		MaxRetries:  cfg.MaxRetries,
	}); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info("starting metrics server", zap.String("addr", metricsAddr))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := idl.NewRegistry()
	if err := idl.LoadDir(registry, cfg.IDLDir, logger); err != nil {
		return fmt.Errorf("load idl directory: %w", err)
	}
	if registry.ProgramCount() == 0 {
		return fmt.Errorf("no programs registered from idl directory %q", cfg.IDLDir)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	rpc := solana.NewHTTPClient(cfg.RPCURL)
	pl := pipeline.New(registry, store, logger)

	engine := backfill.New(rpc, pl, backfill.Config{
		Limit:       cfg.Limit,
		Concurrency: cfg.Concurrency,
		MaxRetries:  cfg.MaxRetries,
		BatchSize:   cfg.BatchSize,
		BatchDelay:  cfg.BatchDelay,
		Logger:      logger,
	})

	logger.Info("starting backfill",
		zap.Strings("programs", cfg.Programs),
		zap.Int("limit", cfg.Limit),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("db_url", cfg.DatabaseURL),
	)

	result, err := engine.Run(ctx, cfg.Programs)
	if err != nil {
		return err
	}

	logger.Info("backfill complete",
		zap.Int("signatures_fetched", result.SignaturesFetched),
		zap.Int("events_inserted", result.EventsInserted),
		zap.Int("errors", result.Errors),
	)
	return nil
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
