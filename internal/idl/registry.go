package idl

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateDiscriminator is returned when two events in the same
	// program's IDL hash to the same 8-byte discriminator.
	ErrDuplicateDiscriminator = errors.New("idl: duplicate event discriminator")
	// ErrProgramMismatch is returned when an IDL's declared address does
	// not match the program id it is being registered under.
	ErrProgramMismatch = errors.New("idl: program id does not match idl address")
)

// Registry holds, per program id, a discriminator -> EventDef index. It is
// immutable after every Register call returns and safe for concurrent
// lookups from many goroutines.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]map[[8]byte]*EventDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]map[[8]byte]*EventDef)}
}

// Register parses doc's events, computes each discriminator, and indexes
// them under programID. programID must match doc.Address.
func (r *Registry) Register(programID string, doc *Document) error {
	if doc.Address != programID {
		return fmt.Errorf("%w: idl address %q, program id %q", ErrProgramMismatch, doc.Address, programID)
	}

	events := make(map[[8]byte]*EventDef, len(doc.Events))
	for _, ev := range doc.Events {
		disc := Discriminator(ev.Name)
		if _, exists := events[disc]; exists {
			return fmt.Errorf("%w: event %q in program %q", ErrDuplicateDiscriminator, ev.Name, programID)
		}
		events[disc] = &EventDef{Name: ev.Name, Fields: ev.Fields, Discriminator: disc}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[programID] = events
	return nil
}

// Lookup returns the event definition registered for programID under
// discriminator, if any.
func (r *Registry) Lookup(programID string, discriminator [8]byte) (*EventDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events, ok := r.byKey[programID]
	if !ok {
		return nil, false
	}
	ev, ok := events[discriminator]
	return ev, ok
}

// EventsFor returns every event definition registered for programID.
func (r *Registry) EventsFor(programID string) []*EventDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := r.byKey[programID]
	out := make([]*EventDef, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)
	}
	return out
}

// ProgramCount returns the number of programs with at least one registered
// event definition.
func (r *Registry) ProgramCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, events := range r.byKey {
		if len(events) > 0 {
			count++
		}
	}
	return count
}
