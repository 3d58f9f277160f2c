package backfill

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"soltrace/internal/idl"
	"soltrace/internal/pipeline"
	"soltrace/internal/solana"
)

type fakeRPC struct {
	mu           sync.Mutex
	signatures   []solana.SignatureInfo
	transactions map[string]*solana.Transaction
	failUntil    map[string]int
	callCounts   map[string]int
}

func (f *fakeRPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return f.signatures, nil
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCounts[signature]++
	if f.callCounts[signature] <= f.failUntil[signature] {
		return nil, errors.New("rpc unavailable")
	}
	return f.transactions[signature], nil
}

func (f *fakeRPC) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	return nil, nil
}

type countingRegistry struct {
	def *idl.EventDef
}

func (r countingRegistry) Lookup(programID string, discriminator [8]byte) (*idl.EventDef, bool) {
	if r.def != nil && r.def.Discriminator == discriminator {
		return r.def, true
	}
	return nil, false
}

type countingStore struct {
	inserted int32
	seen     sync.Map
}

func (s *countingStore) InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error) {
	if _, loaded := s.seen.LoadOrStore(raw.Signature, true); loaded {
		return 0, nil
	}
	atomic.AddInt32(&s.inserted, 1)
	return 1, nil
}

func makeTransferPayload() []byte {
	disc := idl.Discriminator("Transfer")
	return append([]byte{}, disc[:]...)
}

func TestEngine_RunProcessesSignatures(t *testing.T) {
	def := &idl.EventDef{Name: "Transfer", Discriminator: idl.Discriminator("Transfer")}
	payload := makeTransferPayload()
	logLine := "Program data: " + base64.StdEncoding.EncodeToString(payload)

	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{
			{Signature: "sig1", Slot: 100},
			{Signature: "sig2", Slot: 200},
		},
		transactions: map[string]*solana.Transaction{
			"sig1": {Slot: 100, Signature: "sig1", Meta: &solana.TransactionMeta{LogMessages: []string{logLine}}},
			"sig2": {Slot: 200, Signature: "sig2", Meta: &solana.TransactionMeta{LogMessages: []string{logLine}}},
		},
		failUntil:  map[string]int{},
		callCounts: map[string]int{},
	}

	store := &countingStore{}
	pl := pipeline.New(countingRegistry{def: def}, store, nil)
	engine := New(rpc, pl, Config{Concurrency: 2})

	result, err := engine.Run(context.Background(), []string{"prog1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SignaturesFetched != 2 {
		t.Fatalf("expected 2 signatures fetched, got %d", result.SignaturesFetched)
	}
	if result.EventsInserted != 2 {
		t.Fatalf("expected 2 events inserted, got %d", result.EventsInserted)
	}
}

func TestEngine_RetriesTransientFailures(t *testing.T) {
	def := &idl.EventDef{Name: "Transfer", Discriminator: idl.Discriminator("Transfer")}
	payload := makeTransferPayload()
	logLine := "Program data: " + base64.StdEncoding.EncodeToString(payload)

	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{{Signature: "sig1", Slot: 100}},
		transactions: map[string]*solana.Transaction{
			"sig1": {Slot: 100, Signature: "sig1", Meta: &solana.TransactionMeta{LogMessages: []string{logLine}}},
		},
		failUntil:  map[string]int{"sig1": 2},
		callCounts: map[string]int{},
	}

	store := &countingStore{}
	pl := pipeline.New(countingRegistry{def: def}, store, nil)
	engine := New(rpc, pl, Config{Concurrency: 1, MaxRetries: 3})

	result, err := engine.Run(context.Background(), []string{"prog1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsInserted != 1 {
		t.Fatalf("expected 1 event inserted after retries, got %d", result.EventsInserted)
	}
}

func TestEngine_SkipsFailedTransactions(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{{Signature: "sig1", Slot: 100, Err: "InstructionError"}},
		transactions: map[string]*solana.Transaction{},
		failUntil:    map[string]int{},
		callCounts:   map[string]int{},
	}

	store := &countingStore{}
	pl := pipeline.New(countingRegistry{}, store, nil)
	engine := New(rpc, pl, Config{})

	result, err := engine.Run(context.Background(), []string{"prog1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsInserted != 0 {
		t.Fatalf("expected 0 events for a failed transaction, got %d", result.EventsInserted)
	}
}

func TestEngine_BatchDelayBetweenBatches(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{
			{Signature: "sig1", Slot: 100},
			{Signature: "sig2", Slot: 200},
		},
		transactions: map[string]*solana.Transaction{
			"sig1": {Slot: 100, Signature: "sig1"},
			"sig2": {Slot: 200, Signature: "sig2"},
		},
		failUntil:  map[string]int{},
		callCounts: map[string]int{},
	}
	store := &countingStore{}
	pl := pipeline.New(countingRegistry{}, store, nil)
	engine := New(rpc, pl, Config{BatchSize: 1, BatchDelay: 20 * time.Millisecond})

	start := time.Now()
	result, err := engine.Run(context.Background(), []string{"prog1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SignaturesFetched != 2 {
		t.Fatalf("expected 2 signatures fetched, got %d", result.SignaturesFetched)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected at least one inter-batch delay")
	}
}

func TestEngine_BatchSizePartitioning(t *testing.T) {
	batches := batchSignatures([]solana.SignatureInfo{{Signature: "a"}, {Signature: "b"}, {Signature: "c"}}, 2)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Fatalf("unexpected batch sizes: %v, %v", len(batches[0]), len(batches[1]))
	}
}
