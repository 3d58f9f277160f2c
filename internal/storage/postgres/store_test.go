package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soltrace/internal/pipeline"
)

func sampleEvent(sig string, slot uint64) (pipeline.DecodedEvent, pipeline.RawEvent) {
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

func TestStore_InsertAndQuery(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ev, raw := sampleEvent("sig1", 100)
	n, err := store.InsertEvent(ctx, ev, raw)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	exists, err := store.EventExists(ctx, "sig1")
	require.NoError(t, err)
	require.True(t, exists)

	slot, ok, err := store.LatestSlot(ctx, "prog1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), slot)
}

func TestStore_DuplicateSignatureIsNoOp(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ev, raw := sampleEvent("sig1", 100)
	_, err := store.InsertEvent(ctx, ev, raw)
	require.NoError(t, err)

	n, err := store.InsertEvent(ctx, ev, raw)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestStore_EventsBySlotRange(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i, sig := range []string{"sig1", "sig2", "sig3"} {
		ev, raw := sampleEvent(sig, uint64(100*(i+1)))
		_, err := store.InsertEvent(ctx, ev, raw)
		require.NoError(t, err)
	}

	events, err := store.EventsBySlotRange(ctx, 150, 250)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, uint64(200), events[0].Slot)
}

func TestStore_EventsByProgramAndName(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ev1, raw1 := sampleEvent("sig1", 100)
	ev2, raw2 := sampleEvent("sig2", 200)
	_, err := store.InsertEvent(ctx, ev1, raw1)
	require.NoError(t, err)
	_, err = store.InsertEvent(ctx, ev2, raw2)
	require.NoError(t, err)

	byProgram, err := store.EventsByProgram(ctx, "prog1")
	require.NoError(t, err)
	require.Len(t, byProgram, 2)
	require.Equal(t, uint64(200), byProgram[0].Slot)

	byName, err := store.EventsByName(ctx, "Transfer")
	require.NoError(t, err)
	require.Len(t, byName, 2)
}
