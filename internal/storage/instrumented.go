package storage

import (
	"context"
	"time"

	"soltrace/internal/observability"
	"soltrace/internal/pipeline"
)

// instrumented wraps a Store and records operation latency and error counts
// against the backend's name, so every backend's calls show up in
// soltrace_storage_operation_latency_seconds regardless of driver.
type instrumented struct {
	backend string
	Store
}

func instrument(backend string, store Store) Store {
	return &instrumented{backend: backend, Store: store}
}

func (s *instrumented) observe(operation string, start time.Time, err error) {
	observability.RecordStoreOperation(s.backend, operation, time.Since(start).Seconds(), err)
}

func (s *instrumented) Initialize(ctx context.Context) error {
	start := time.Now()
	err := s.Store.Initialize(ctx)
	s.observe("initialize", start, err)
	return err
}

func (s *instrumented) InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error) {
	start := time.Now()
	n, err := s.Store.InsertEvent(ctx, e, raw)
	s.observe("insert_event", start, err)
	return n, err
}

func (s *instrumented) EventExists(ctx context.Context, signature string) (bool, error) {
	start := time.Now()
	ok, err := s.Store.EventExists(ctx, signature)
	s.observe("event_exists", start, err)
	return ok, err
}

func (s *instrumented) LatestSlot(ctx context.Context, programID string) (uint64, bool, error) {
	start := time.Now()
	slot, ok, err := s.Store.LatestSlot(ctx, programID)
	s.observe("latest_slot", start, err)
	return slot, ok, err
}

func (s *instrumented) EventsByProgram(ctx context.Context, programID string) ([]EventRecord, error) {
	start := time.Now()
	records, err := s.Store.EventsByProgram(ctx, programID)
	s.observe("events_by_program", start, err)
	return records, err
}

func (s *instrumented) EventsByName(ctx context.Context, eventName string) ([]EventRecord, error) {
	start := time.Now()
	records, err := s.Store.EventsByName(ctx, eventName)
	s.observe("events_by_name", start, err)
	return records, err
}

func (s *instrumented) EventsBySlotRange(ctx context.Context, startSlot, endSlot uint64) ([]EventRecord, error) {
	start := time.Now()
	records, err := s.Store.EventsBySlotRange(ctx, startSlot, endSlot)
	s.observe("events_by_slot_range", start, err)
	return records, err
}
