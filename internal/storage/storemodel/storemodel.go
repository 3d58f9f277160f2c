// Package storemodel defines the storage contract types shared between the
// storage package and its backend implementations. It exists separately
// from soltrace/internal/storage so that backend packages (mongo, postgres,
// sqlite) can depend on the contract without importing the storage package
// itself, which would otherwise create an import cycle through
// soltrace/internal/storage's factory.
package storemodel

import (
	"context"
	"time"

	"soltrace/internal/pipeline"
)

// EventRecord is a persisted event row as read back from any backend.
type EventRecord struct {
	ID            string
	Slot          uint64
	Signature     string
	ProgramID     string
	EventName     string
	Discriminator string
	Data          map[string]interface{}
	Timestamp     time.Time
}

// Store is the full storage contract every backend implements: the write
// side the pipeline needs (satisfying pipeline.Store structurally) plus the
// read-side query methods used by the query CLI and any future consumer.
type Store interface {
	// Initialize prepares the backend's schema. It is idempotent and safe
	// to call on every startup.
	Initialize(ctx context.Context) error

	// InsertEvent persists a decoded event keyed by raw.Signature. A second
	// insert for the same signature is a no-op: it returns (0, nil) rather
	// than ErrDuplicateKey, matching pipeline.Store's contract.
	InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error)

	// EventExists reports whether an event for signature has already been
	// recorded.
	EventExists(ctx context.Context, signature string) (bool, error)

	// LatestSlot returns the highest recorded slot for programID, or false
	// if no events have been recorded for it yet.
	LatestSlot(ctx context.Context, programID string) (uint64, bool, error)

	// EventsByProgram returns every recorded event for programID, newest
	// slot first.
	EventsByProgram(ctx context.Context, programID string) ([]EventRecord, error)

	// EventsByName returns every recorded event with the given event name,
	// newest slot first.
	EventsByName(ctx context.Context, eventName string) ([]EventRecord, error)

	// EventsBySlotRange returns every recorded event with startSlot <= slot
	// <= endSlot, ordered by slot ascending.
	EventsBySlotRange(ctx context.Context, startSlot, endSlot uint64) ([]EventRecord, error)

	// Close releases any resources held by the backend.
	Close() error
}
