package pipeline

import "time"

// RawEvent is one transaction's worth of scannable data handed to the
// pipeline by either ingestion engine.
type RawEvent struct {
	Slot      uint64
	Signature string
	ProgramID string
	Timestamp time.Time
	LogLines  []string
}

// DecodedEvent is the structured result of decoding one program-data line
// against a registered event definition.
type DecodedEvent struct {
	EventName     string
	Discriminator string // lower-case hex, 16 characters
	Data          map[string]interface{}
}
