// Package backfill drives historical event ingestion by fetching a single
// page of a program's most recent signatures over Solana JSON-RPC and
// processing their transactions; older history is not paged through.
package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"soltrace/internal/observability"
	"soltrace/internal/pipeline"
	"soltrace/internal/solana"
)

// Config controls Engine behavior.
type Config struct {
	// Limit is the maximum number of signatures fetched per program in a
	// single page. Defaults to 1000.
	Limit int

	// Concurrency bounds the number of transaction fetches in flight at
	// once, within a batch. Defaults to 10.
	Concurrency int

	// MaxRetries bounds retry attempts for a single RPC call. Defaults to 3.
	MaxRetries int

	// BatchSize is the number of signatures per contiguous batch. Defaults
	// to 10.
	BatchSize int

	// BatchDelay is slept between batches within a program, to avoid
	// bursting the RPC endpoint. Defaults to 100ms.
	BatchDelay time.Duration

	Logger *zap.Logger
}

func (c *Config) setDefaults() {
	if c.Limit == 0 {
		c.Limit = 1000
	}
	if c.Concurrency == 0 {
		c.Concurrency = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Result summarizes one Engine.Run invocation.
type Result struct {
	SignaturesFetched int
	EventsInserted    int
	Errors            int
}

// Engine fetches and processes historical transactions for a set of
// programs.
type Engine struct {
	rpc    solana.RPCClient
	pl     *pipeline.Pipeline
	config Config
}

// New builds an Engine over an already-constructed RPC client and pipeline.
func New(rpc solana.RPCClient, pl *pipeline.Pipeline, config Config) *Engine {
	config.setDefaults()
	return &Engine{rpc: rpc, pl: pl, config: config}
}

// Run backfills every program in programs, one at a time.
func (e *Engine) Run(ctx context.Context, programs []string) (Result, error) {
	var total Result
	for _, programID := range programs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		result, err := e.runProgram(ctx, programID)
		total.SignaturesFetched += result.SignaturesFetched
		total.EventsInserted += result.EventsInserted
		total.Errors += result.Errors
		if err != nil {
			return total, fmt.Errorf("backfill program %s: %w", programID, err)
		}
	}
	return total, nil
}

// batchSignatures partitions signatures into contiguous batches of at most
// size elements.
func batchSignatures(signatures []solana.SignatureInfo, size int) [][]solana.SignatureInfo {
	if len(signatures) == 0 {
		return nil
	}
	batches := make([][]solana.SignatureInfo, 0, (len(signatures)+size-1)/size)
	for start := 0; start < len(signatures); start += size {
		end := start + size
		if end > len(signatures) {
			end = len(signatures)
		}
		batches = append(batches, signatures[start:end])
	}
	return batches
}

func (e *Engine) runProgram(ctx context.Context, programID string) (Result, error) {
	var result Result

	signatures, err := e.rpc.GetSignaturesForAddress(ctx, programID, &solana.SignaturesOpts{Limit: e.config.Limit})
	if err != nil {
		return result, fmt.Errorf("get signatures: %w", err)
	}
	result.SignaturesFetched = len(signatures)
	observability.RecordSignaturesFetched(programID, len(signatures))
	e.config.Logger.Info("fetched signatures", zap.String("program_id", programID), zap.Int("count", len(signatures)))

	batches := batchSignatures(signatures, e.config.BatchSize)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		inserted, errs := e.runBatch(ctx, programID, batch)
		result.EventsInserted += inserted
		result.Errors += errs

		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(e.config.BatchDelay):
			}
		}
	}

	return result, nil
}

// runBatch fetches and processes one batch of signatures with concurrency
// bounded by Config.Concurrency.
func (e *Engine) runBatch(ctx context.Context, programID string, batch []solana.SignatureInfo) (inserted, errs int) {
	sem := make(chan struct{}, e.config.Concurrency)
	type fetchResult struct {
		inserted int
		err      error
	}
	results := make(chan fetchResult, len(batch))

	for _, sig := range batch {
		if sig.Err != nil {
			results <- fetchResult{}
			continue
		}

		sem <- struct{}{}
		go func(signature string) {
			defer func() { <-sem }()
			n, err := e.processSignature(ctx, programID, signature)
			results <- fetchResult{inserted: n, err: err}
		}(sig.Signature)
	}

	for range batch {
		r := <-results
		if r.err != nil {
			errs++
			e.config.Logger.Debug("failed to process signature", zap.Error(r.err))
			continue
		}
		inserted += r.inserted
	}

	return inserted, errs
}

func (e *Engine) processSignature(ctx context.Context, programID, signature string) (int, error) {
	tx, err := e.fetchTransactionWithRetry(ctx, programID, signature)
	if err != nil {
		return 0, err
	}
	if tx == nil {
		return 0, nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return 0, nil
	}

	var logLines []string
	if tx.Meta != nil {
		logLines = tx.Meta.LogMessages
	}

	timestamp := time.Now()
	if tx.BlockTime > 0 {
		timestamp = time.Unix(tx.BlockTime, 0)
	}

	raw := pipeline.RawEvent{
		Slot:      uint64(tx.Slot),
		Signature: signature,
		ProgramID: programID,
		Timestamp: timestamp,
		LogLines:  logLines,
	}
	return e.pl.Process(ctx, raw)
}

// fetchTransactionWithRetry retries transient RPC failures with exponential
// backoff, doubling from 200ms and capping at 5s.
func (e *Engine) fetchTransactionWithRetry(ctx context.Context, programID, signature string) (*solana.Transaction, error) {
	const baseDelay = 200 * time.Millisecond
	const maxDelay = 5 * time.Second

	var lastErr error
	delay := baseDelay
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordFetchRetry(programID)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		tx, err := e.rpc.GetTransaction(ctx, signature)
		if err == nil {
			return tx, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch transaction %s after %d attempts: %w", signature, e.config.MaxRetries+1, lastErr)
}
