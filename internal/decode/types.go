// Package decode implements the Borsh-style binary decoder that turns
// discriminator-stripped event payloads into structured values, driven by
// the type grammar an IDL document describes.
package decode

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a leaf or composite shape in the type grammar.
type Kind string

const (
	KindBool      Kind = "bool"
	KindU8        Kind = "u8"
	KindU16       Kind = "u16"
	KindU32       Kind = "u32"
	KindU64       Kind = "u64"
	KindU128      Kind = "u128"
	KindI8        Kind = "i8"
	KindI16       Kind = "i16"
	KindI32       Kind = "i32"
	KindI64       Kind = "i64"
	KindI128      Kind = "i128"
	KindString    Kind = "string"
	KindBytes     Kind = "bytes"
	KindPublicKey Kind = "publicKey"
	KindOption    Kind = "option"
	KindVec       Kind = "vec"
	KindArray     Kind = "array"
)

// Type is a node in the recursive type grammar. Leaf kinds use only Kind;
// Option and Vec additionally use Elem; Array additionally uses Elem and Len.
type Type struct {
	Kind Kind
	Elem *Type
	Len  int
}

var primitiveKinds = map[string]Kind{
	"bool":              KindBool,
	"u8":                KindU8,
	"u16":               KindU16,
	"u32":               KindU32,
	"u64":               KindU64,
	"u128":              KindU128,
	"i8":                KindI8,
	"i16":               KindI16,
	"i32":               KindI32,
	"i64":               KindI64,
	"i128":              KindI128,
	"string":            KindString,
	"bytes":             KindBytes,
	"publicKey":         KindPublicKey,
	"pubkey":            KindPublicKey,
}

// UnmarshalJSON accepts either a bare primitive name ("u64") or a one-key
// composite object ({"option": T}, {"vec": T}, {"array": [T, N]}).
func (t *Type) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		kind, ok := primitiveKinds[asString]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownType, asString)
		}
		*t = Type{Kind: kind}
		return nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("decode type: %w", err)
	}
	if len(asObject) != 1 {
		return fmt.Errorf("%w: composite type must have exactly one key", ErrUnknownType)
	}

	for key, raw := range asObject {
		switch key {
		case "option":
			var elem Type
			if err := json.Unmarshal(raw, &elem); err != nil {
				return fmt.Errorf("option element: %w", err)
			}
			*t = Type{Kind: KindOption, Elem: &elem}
			return nil
		case "vec":
			var elem Type
			if err := json.Unmarshal(raw, &elem); err != nil {
				return fmt.Errorf("vec element: %w", err)
			}
			*t = Type{Kind: KindVec, Elem: &elem}
			return nil
		case "array":
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("%w: array must be [type, length]", ErrUnknownType)
			}
			var elem Type
			if err := json.Unmarshal(pair[0], &elem); err != nil {
				return fmt.Errorf("array element: %w", err)
			}
			var length int
			if err := json.Unmarshal(pair[1], &length); err != nil {
				return fmt.Errorf("array length: %w", err)
			}
			*t = Type{Kind: KindArray, Elem: &elem, Len: length}
			return nil
		default:
			return fmt.Errorf("%w: unknown composite key %q", ErrUnknownType, key)
		}
	}
	return nil
}
