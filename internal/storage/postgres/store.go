package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"soltrace/internal/pipeline"
	"soltrace/internal/storage/storemodel"
)

// Store persists events in a Postgres table with a JSONB payload column.
type Store struct {
	pool *Pool
}

// NewStore wraps an already-connected pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    slot BIGINT NOT NULL,
    signature TEXT NOT NULL UNIQUE,
    program_id TEXT NOT NULL,
    event_name TEXT NOT NULL,
    discriminator TEXT NOT NULL,
    data JSONB NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_slot ON events(slot);
CREATE INDEX IF NOT EXISTS idx_events_program_id ON events(program_id);
CREATE INDEX IF NOT EXISTS idx_events_event_name ON events(event_name);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_data_gin ON events USING GIN (data);
`

// Initialize applies the schema. Safe to call repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// InsertEvent persists e keyed by raw.Signature. A duplicate signature is a
// silent no-op: it returns (0, nil) rather than surfacing the unique
// violation.
func (s *Store) InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal event data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO events (slot, signature, program_id, event_name, discriminator, data, timestamp)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, raw.Slot, raw.Signature, raw.ProgramID, e.EventName, e.Discriminator, payload, raw.Timestamp.UTC())
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return 1, nil
}

// EventExists reports whether signature has already been recorded.
func (s *Store) EventExists(ctx context.Context, signature string) (bool, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE signature = $1`, signature).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query event existence: %w", err)
	}
	return count > 0, nil
}

// LatestSlot returns the highest recorded slot for programID.
func (s *Store) LatestSlot(ctx context.Context, programID string) (uint64, bool, error) {
	var slot *int64
	err := s.pool.QueryRow(ctx, `SELECT MAX(slot) FROM events WHERE program_id = $1`, programID).Scan(&slot)
	if err != nil {
		return 0, false, fmt.Errorf("query latest slot: %w", err)
	}
	if slot == nil {
		return 0, false, nil
	}
	return uint64(*slot), true, nil
}

// EventsByProgram returns every recorded event for programID, newest slot first.
func (s *Store) EventsByProgram(ctx context.Context, programID string) ([]storemodel.EventRecord, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE program_id = $1 ORDER BY slot DESC
    `, programID)
	if err != nil {
		return nil, fmt.Errorf("query events by program: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// EventsByName returns every recorded event with the given event name,
// newest slot first.
func (s *Store) EventsByName(ctx context.Context, eventName string) ([]storemodel.EventRecord, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE event_name = $1 ORDER BY slot DESC
    `, eventName)
	if err != nil {
		return nil, fmt.Errorf("query events by name: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// EventsBySlotRange returns every recorded event within [startSlot, endSlot],
// ordered by slot ascending.
func (s *Store) EventsBySlotRange(ctx context.Context, startSlot, endSlot uint64) ([]storemodel.EventRecord, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE slot >= $1 AND slot <= $2 ORDER BY slot ASC
    `, startSlot, endSlot)
	if err != nil {
		return nil, fmt.Errorf("query events by slot range: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanEventRows(rows pgx.Rows) ([]storemodel.EventRecord, error) {
	var records []storemodel.EventRecord
	for rows.Next() {
		var rec storemodel.EventRecord
		var id int64
		var slot int64
		var data []byte
		if err := rows.Scan(&id, &slot, &rec.Signature, &rec.ProgramID, &rec.EventName, &rec.Discriminator, &data, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		rec.ID = fmt.Sprintf("%d", id)
		rec.Slot = uint64(slot)
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return records, nil
}

var _ storemodel.Store = (*Store)(nil)
