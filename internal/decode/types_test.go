package decode

import (
	"encoding/json"
	"testing"
)

func TestType_UnmarshalPrimitive(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`"u64"`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindU64 {
		t.Fatalf("expected KindU64, got %v", typ.Kind)
	}
}

func TestType_UnmarshalPubkeyAlias(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`"pubkey"`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindPublicKey {
		t.Fatalf("expected KindPublicKey, got %v", typ.Kind)
	}
}

func TestType_UnmarshalOption(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`{"option":"publicKey"}`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindOption || typ.Elem == nil || typ.Elem.Kind != KindPublicKey {
		t.Fatalf("unexpected type: %+v", typ)
	}
}

func TestType_UnmarshalVec(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`{"vec":"u8"}`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindVec || typ.Elem.Kind != KindU8 {
		t.Fatalf("unexpected type: %+v", typ)
	}
}

func TestType_UnmarshalArray(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`{"array":["u8",32]}`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindArray || typ.Elem.Kind != KindU8 || typ.Len != 32 {
		t.Fatalf("unexpected type: %+v", typ)
	}
}

func TestType_UnmarshalNestedVecOption(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`{"vec":{"option":"u32"}}`), &typ); err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindVec || typ.Elem.Kind != KindOption || typ.Elem.Elem.Kind != KindU32 {
		t.Fatalf("unexpected type: %+v", typ)
	}
}

func TestType_UnmarshalUnknownPrimitive(t *testing.T) {
	var typ Type
	err := json.Unmarshal([]byte(`"notatype"`), &typ)
	if err == nil {
		t.Fatal("expected error for unknown primitive")
	}
}

func TestType_UnmarshalUnknownComposite(t *testing.T) {
	var typ Type
	err := json.Unmarshal([]byte(`{"map":"u8"}`), &typ)
	if err == nil {
		t.Fatal("expected error for unknown composite key")
	}
}
