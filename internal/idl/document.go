// Package idl parses Anchor-style IDL documents and indexes their events by
// discriminator for fast lookup during log scanning.
package idl

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"soltrace/internal/decode"
)

// Field is one named, typed member of an event.
type Field struct {
	Name string      `json:"name"`
	Type decode.Type `json:"type"`
}

// EventDef describes one event's wire shape and its precomputed discriminator.
type EventDef struct {
	Name          string
	Fields        []Field
	Discriminator [8]byte
}

// eventJSON is the on-disk shape of one entry in the IDL's "events" array.
type eventJSON struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Document is a parsed IDL file: a program address plus its event schemas.
type Document struct {
	Address string      `json:"address"`
	Events  []eventJSON `json:"events"`
}

// ParseDocument parses raw IDL JSON bytes into a Document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse idl document: %w", err)
	}
	if doc.Address == "" {
		return nil, fmt.Errorf("parse idl document: missing address")
	}
	return &doc, nil
}

// Discriminator computes the first 8 bytes of sha256("event:"+name), the
// on-wire identifier of an event with the given name.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
