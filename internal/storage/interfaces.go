package storage

import "soltrace/internal/storage/storemodel"

// EventRecord is a persisted event row as read back from any backend.
type EventRecord = storemodel.EventRecord

// Store is the full storage contract every backend implements: the write
// side the pipeline needs (satisfying pipeline.Store structurally) plus the
// read-side query methods used by the query CLI and any future consumer.
type Store = storemodel.Store
