package idl

import (
	"testing"

	"soltrace/internal/decode"
)

const testProgram = "B85X9aTrpWAdi1xhLvPmDPuYmfz5YdMd9X8qr7uU4H18"

func transferDoc() *Document {
	return &Document{
		Address: testProgram,
		Events: []eventJSON{
			{Name: "Transfer", Fields: []Field{
				{Name: "from", Type: decode.Type{Kind: decode.KindPublicKey}},
				{Name: "to", Type: decode.Type{Kind: decode.KindPublicKey}},
				{Name: "amount", Type: decode.Type{Kind: decode.KindU64}},
			}},
			{Name: "Deposit", Fields: []Field{
				{Name: "amount", Type: decode.Type{Kind: decode.KindU64}},
			}},
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(testProgram, transferDoc()); err != nil {
		t.Fatalf("register: %v", err)
	}

	disc := Discriminator("Transfer")
	ev, ok := reg.Lookup(testProgram, disc)
	if !ok {
		t.Fatal("expected Transfer to be registered")
	}
	if ev.Name != "Transfer" || len(ev.Fields) != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestRegistry_LookupUnknownDiscriminator(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(testProgram, transferDoc()); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, ok := reg.Lookup(testProgram, Discriminator("NoSuchEvent"))
	if ok {
		t.Fatal("expected lookup to fail for unregistered event name")
	}
}

func TestRegistry_ProgramMismatch(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("someOtherProgramId", transferDoc())
	if err == nil {
		t.Fatal("expected ErrProgramMismatch")
	}
}

func TestRegistry_DuplicateDiscriminator(t *testing.T) {
	reg := NewRegistry()
	doc := &Document{
		Address: testProgram,
		Events: []eventJSON{
			{Name: "Transfer"},
			{Name: "Transfer"},
		},
	}
	err := reg.Register(testProgram, doc)
	if err == nil {
		t.Fatal("expected ErrDuplicateDiscriminator")
	}
}

func TestDiscriminator_IsDeterministic(t *testing.T) {
	d1 := Discriminator("Transfer")
	d2 := Discriminator("Transfer")
	if d1 != d2 {
		t.Fatal("discriminator must be deterministic for the same name")
	}
	if d1 == Discriminator("Deposit") {
		t.Fatal("different event names must not collide")
	}
}

func TestRegistry_EventsFor(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(testProgram, transferDoc()); err != nil {
		t.Fatalf("register: %v", err)
	}
	events := reg.EventsFor(testProgram)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}
