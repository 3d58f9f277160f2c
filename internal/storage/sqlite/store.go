// Package sqlite implements the storemodel.Store contract over an embedded,
// pure-Go sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/sqlite"

	"soltrace/internal/pipeline"
	"soltrace/internal/storage/storemodel"
)

// Store wraps a sqlite-backed events table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dsn. For a
// "sqlite:" storage URL dsn is what remains after that prefix, e.g.
// "./events.db" or ":memory:"; a "file:" URL is passed whole.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slot INTEGER NOT NULL,
    signature TEXT NOT NULL UNIQUE,
    program_id TEXT NOT NULL,
    event_name TEXT NOT NULL,
    discriminator TEXT NOT NULL,
    data TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_slot ON events(slot);
CREATE INDEX IF NOT EXISTS idx_events_program_id ON events(program_id);
CREATE INDEX IF NOT EXISTS idx_events_event_name ON events(event_name);
`

// Initialize applies the schema. Safe to call repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// InsertEvent persists e keyed by raw.Signature. A duplicate signature is a
// silent no-op: it returns (0, nil).
func (s *Store) InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal event data: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
        INSERT INTO events(slot, signature, program_id, event_name, discriminator, data, timestamp)
        VALUES(?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(signature) DO NOTHING
    `, raw.Slot, raw.Signature, raw.ProgramID, e.EventName, e.Discriminator, string(payload), raw.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// EventExists reports whether signature has already been recorded.
func (s *Store) EventExists(ctx context.Context, signature string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE signature = ?`, signature).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query event existence: %w", err)
	}
	return count > 0, nil
}

// LatestSlot returns the highest recorded slot for programID.
func (s *Store) LatestSlot(ctx context.Context, programID string) (uint64, bool, error) {
	var slot sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(slot) FROM events WHERE program_id = ?`, programID).Scan(&slot)
	if err != nil {
		return 0, false, fmt.Errorf("query latest slot: %w", err)
	}
	if !slot.Valid {
		return 0, false, nil
	}
	return uint64(slot.Int64), true, nil
}

// EventsByProgram returns every recorded event for programID, newest slot first.
func (s *Store) EventsByProgram(ctx context.Context, programID string) ([]storemodel.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE program_id = ? ORDER BY slot DESC
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
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE event_name = ? ORDER BY slot DESC
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
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, slot, signature, program_id, event_name, discriminator, data, timestamp
        FROM events WHERE slot >= ? AND slot <= ? ORDER BY slot ASC
    `, startSlot, endSlot)
	if err != nil {
		return nil, fmt.Errorf("query events by slot range: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEventRows(rows *sql.Rows) ([]storemodel.EventRecord, error) {
	var records []storemodel.EventRecord
	for rows.Next() {
		var rec storemodel.EventRecord
		var id int64
		var rawData string
		var ts time.Time
		if err := rows.Scan(&id, &rec.Slot, &rec.Signature, &rec.ProgramID, &rec.EventName, &rec.Discriminator, &rawData, &ts); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		rec.ID = fmt.Sprintf("%d", id)
		rec.Timestamp = ts
		if err := json.Unmarshal([]byte(rawData), &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return records, nil
}
