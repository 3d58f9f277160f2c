package sqlite

import (
	"context"
	"testing"
	"time"

	"soltrace/internal/pipeline"
)

func testEvent(sig string, slot uint64) (pipeline.DecodedEvent, pipeline.RawEvent) {
	return pipeline.DecodedEvent{
			EventName:     "Transfer",
			Discriminator: "aabbccddeeff0011",
			Data:          map[string]interface{}{"amount": "42"},
		}, pipeline.RawEvent{
			Slot:      slot,
			Signature: sig,
			ProgramID: "prog1",
			Timestamp: time.Unix(1700000000, 0).UTC(),
		}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_InsertAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev, raw := testEvent("sig1", 100)
	n, err := store.InsertEvent(ctx, ev, raw)
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row inserted, got %d", n)
	}

	exists, err := store.EventExists(ctx, "sig1")
	if err != nil || !exists {
		t.Fatalf("expected event to exist: exists=%v err=%v", exists, err)
	}

	slot, ok, err := store.LatestSlot(ctx, "prog1")
	if err != nil || !ok || slot != 100 {
		t.Fatalf("expected latest slot 100, got %d ok=%v err=%v", slot, ok, err)
	}
}

func TestStore_DuplicateSignatureIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev, raw := testEvent("sig1", 100)
	if _, err := store.InsertEvent(ctx, ev, raw); err != nil {
		t.Fatal(err)
	}
	n, err := store.InsertEvent(ctx, ev, raw)
	if err != nil {
		t.Fatalf("InsertEvent duplicate: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows on duplicate insert, got %d", n)
	}
}

func TestStore_EventsByProgramAndName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev1, raw1 := testEvent("sig1", 100)
	ev2, raw2 := testEvent("sig2", 200)
	if _, err := store.InsertEvent(ctx, ev1, raw1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertEvent(ctx, ev2, raw2); err != nil {
		t.Fatal(err)
	}

	byProgram, err := store.EventsByProgram(ctx, "prog1")
	if err != nil {
		t.Fatalf("EventsByProgram: %v", err)
	}
	if len(byProgram) != 2 {
		t.Fatalf("expected 2 events, got %d", len(byProgram))
	}
	if byProgram[0].Slot != 200 {
		t.Fatalf("expected newest slot first, got %d", byProgram[0].Slot)
	}

	byName, err := store.EventsByName(ctx, "Transfer")
	if err != nil {
		t.Fatalf("EventsByName: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 events, got %d", len(byName))
	}
}

func TestStore_EventsBySlotRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		ev, raw := testEvent(sig, uint64(100*(i+1)))
		if _, err := store.InsertEvent(ctx, ev, raw); err != nil {
			t.Fatal(err)
		}
	}

	events, err := store.EventsBySlotRange(ctx, 150, 250)
	if err != nil {
		t.Fatalf("EventsBySlotRange: %v", err)
	}
	if len(events) != 1 || events[0].Slot != 200 {
		t.Fatalf("expected only slot 200 in range, got %+v", events)
	}
}

func TestStore_LatestSlotForUnknownProgram(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.LatestSlot(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("LatestSlot: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a program with no events")
	}
}
