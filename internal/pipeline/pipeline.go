package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"soltrace/internal/decode"
	"soltrace/internal/idl"
	"soltrace/internal/observability"
	"soltrace/internal/scanner"
)

// Store is the write side of the storage abstraction the pipeline needs.
// Concrete backends under internal/storage implement this structurally.
type Store interface {
	InsertEvent(ctx context.Context, e DecodedEvent, raw RawEvent) (int, error)
}

// Registry is the read side of the IDL registry the pipeline needs.
type Registry interface {
	Lookup(programID string, discriminator [8]byte) (*idl.EventDef, bool)
}

// Pipeline turns RawEvents into DecodedEvents and persists them.
type Pipeline struct {
	registry Registry
	store    Store
	logger   *zap.Logger
}

// New builds a Pipeline over registry and store. A nil logger defaults to
// a no-op logger.
func New(registry Registry, store Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{registry: registry, store: store, logger: logger}
}

// Process scans every log line in raw for program-data payloads, decodes
// each against the registry, and inserts the result. It returns the number
// of rows actually inserted (0 or 1, since storage enforces one row per
// signature) and only returns an error for a store failure that isn't a
// duplicate-signature rejection.
func (p *Pipeline) Process(ctx context.Context, raw RawEvent) (int, error) {
	inserted := 0

	for _, line := range raw.LogLines {
		payload, ok := scanner.Scan(line)
		if !ok {
			continue
		}
		if len(payload) < 8 {
			continue
		}
		observability.RecordEventProcessed(raw.ProgramID)

		var discriminator [8]byte
		copy(discriminator[:], payload[:8])

		def, ok := p.registry.Lookup(raw.ProgramID, discriminator)
		if !ok {
			p.logger.Debug("unknown discriminator", zap.String("program_id", raw.ProgramID), zap.String("signature", raw.Signature))
			continue
		}

		decoded, err := p.decodeEvent(def, payload[8:])
		if err != nil {
			p.logger.Debug("decode failed, falling back to raw hex",
				zap.String("event", def.Name), zap.String("signature", raw.Signature), zap.Error(err))
			observability.RecordDecodeError(raw.ProgramID, "decode_failed")
			decoded = &DecodedEvent{
				EventName:     def.Name,
				Discriminator: hex.EncodeToString(discriminator[:]),
				Data:          map[string]interface{}{"raw": hex.EncodeToString(payload[8:])},
			}
		}

		n, err := p.store.InsertEvent(ctx, *decoded, raw)
		if err != nil {
			return inserted, fmt.Errorf("insert event %s for signature %s: %w", def.Name, raw.Signature, err)
		}
		if n > 0 {
			observability.RecordEventInserted(raw.ProgramID, def.Name)
		} else {
			observability.RecordEventDuplicated(raw.ProgramID)
		}
		inserted += n

		// One row per signature: once an event from this transaction has
		// landed, further Program data lines in the same transaction are
		// dropped rather than attempted against a store that would reject
		// them anyway.
		if n > 0 {
			break
		}
	}

	return inserted, nil
}

func (p *Pipeline) decodeEvent(def *idl.EventDef, body []byte) (*DecodedEvent, error) {
	cur := decode.NewCursor(body)
	data := make(map[string]interface{}, len(def.Fields))
	for _, field := range def.Fields {
		v, err := decode.Decode(field.Type, cur)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		data[field.Name] = v
	}
	return &DecodedEvent{
		EventName:     def.Name,
		Discriminator: hex.EncodeToString(def.Discriminator[:]),
		Data:          data,
	}, nil
}
