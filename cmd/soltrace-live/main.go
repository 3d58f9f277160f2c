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

	"soltrace/internal/config"
	"soltrace/internal/idl"
	"soltrace/internal/live"
	"soltrace/internal/observability"
	"soltrace/internal/pipeline"
	"soltrace/internal/solana"
	"soltrace/internal/storage"
	"soltrace/internal/validate"
)

func main() {
	root := &cobra.Command{
		Use:          "soltrace-live",
		Short:        "Real-time Solana program event ingestion",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Subscribe to program logs and ingest decoded events",
		RunE:  runLive,
	}

	runCmd.Flags().StringSlice("programs", nil, "program ids to monitor (comma-separated)")
	runCmd.Flags().String("idl-dir", "", "directory of IDL JSON files")
	runCmd.Flags().String("db-url", "", "storage URL (sqlite:, postgres://, or mongodb://)")
	runCmd.Flags().String("rpc-url", "", "Solana JSON-RPC HTTP endpoint")
	runCmd.Flags().String("ws-url", "", "Solana JSON-RPC WebSocket endpoint")
	runCmd.Flags().String("commitment", "confirmed", "log commitment level: processed, confirmed, or finalized")
	runCmd.Flags().Duration("reconnect-delay", 5*time.Second, "base delay before the first reconnect attempt")
	runCmd.Flags().Int("max-reconnects", 0, "maximum consecutive reconnect attempts, 0 for unbounded")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().String("metrics-addr", ":9090", "Prometheus metrics HTTP address, empty to disable")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the backing store's schema, idempotently",
		RunE:  runInit,
	}
	initCmd.Flags().String("db-url", "", "storage URL (sqlite:, postgres://, or mongodb://)")

	root.AddCommand(runCmd, initCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	dbURL, _ := cmd.Flags().GetString("db-url")
	if dbURL == "" {
		return fmt.Errorf("--db-url is required")
	}

	store, err := storage.Open(context.Background(), dbURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	return store.Close()
}

func runLive(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLive(cmd.Flags())
	if err != nil {
		return err
	}

	if err := validate.Live(validate.LiveConfig{
		Programs:       cfg.Programs,
		IDLDir:         cfg.IDLDir,
		DatabaseURL:    cfg.DatabaseURL,
		RPCURL:         cfg.RPCURL,
		WSURL:          cfg.WSURL,
		Commitment:     cfg.Commitment,
		ReconnectDelay: int(cfg.ReconnectDelay.Seconds()),
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
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
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

	wsConfig := solana.DefaultWSConfig()
	wsConfig.Commitment = cfg.Commitment
	wsConfig.Logger = logger

	ws, err := solana.NewWSClient(ctx, cfg.WSURL, &wsConfig)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	pl := pipeline.New(registry, store, logger)

	engine := live.New(ws, pl, live.Config{
		Programs:       cfg.Programs,
		Commitment:     cfg.Commitment,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxReconnects:  cfg.MaxReconnects,
		Logger:         logger,
	})

	logger.Info("starting live ingestion",
		zap.Strings("programs", cfg.Programs),
		zap.String("commitment", cfg.Commitment),
		zap.String("db_url", cfg.DatabaseURL),
	)

	err = engine.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	logger.Info("live ingestion stopped")
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
