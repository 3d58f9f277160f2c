package decode

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/mr-tron/base58"
)

// Decode interprets t against cur, returning a JSON-marshalable value.
// u64/u128/i64/i128 are returned as decimal strings to survive a JSON or
// document-store round trip without precision loss; every other integer
// width is returned as a native Go integer.
func Decode(t Type, cur *Cursor) (interface{}, error) {
	switch t.Kind {
	case KindBool:
		b, err := cur.Take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, ErrInvalidBool
		}

	case KindU8:
		b, err := cur.Take(1)
		if err != nil {
			return nil, err
		}
		return uint64(b[0]), nil
	case KindI8:
		b, err := cur.Take(1)
		if err != nil {
			return nil, err
		}
		return int64(int8(b[0])), nil

	case KindU16:
		b, err := cur.Take(2)
		if err != nil {
			return nil, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case KindI16:
		b, err := cur.Take(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b))), nil

	case KindU32:
		b, err := cur.Take(4)
		if err != nil {
			return nil, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case KindI32:
		b, err := cur.Take(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.LittleEndian.Uint32(b))), nil

	case KindU64:
		b, err := cur.Take(8)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint64(b)
		return fmt.Sprintf("%d", v), nil
	case KindI64:
		b, err := cur.Take(8)
		if err != nil {
			return nil, err
		}
		v := int64(binary.LittleEndian.Uint64(b))
		return fmt.Sprintf("%d", v), nil

	case KindU128:
		b, err := cur.Take(16)
		if err != nil {
			return nil, err
		}
		return leBytesToBigUint(b).String(), nil
	case KindI128:
		b, err := cur.Take(16)
		if err != nil {
			return nil, err
		}
		return leBytesToBigInt128(b).String(), nil

	case KindString:
		length, err := readLength(cur)
		if err != nil {
			return nil, err
		}
		b, err := cur.Take(length)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, ErrInvalidUTF8
		}
		return string(b), nil

	case KindBytes:
		length, err := readLength(cur)
		if err != nil {
			return nil, err
		}
		b, err := cur.Take(length)
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil

	case KindPublicKey:
		b, err := cur.Take(32)
		if err != nil {
			return nil, err
		}
		return base58.Encode(b), nil

	case KindOption:
		tag, err := cur.Take(1)
		if err != nil {
			return nil, err
		}
		switch tag[0] {
		case 0:
			return nil, nil
		case 1:
			if t.Elem == nil {
				return nil, fmt.Errorf("%w: option missing element type", ErrUnknownType)
			}
			return Decode(*t.Elem, cur)
		default:
			return nil, ErrInvalidOption
		}

	case KindVec:
		length, err := readLength(cur)
		if err != nil {
			return nil, err
		}
		if t.Elem == nil {
			return nil, fmt.Errorf("%w: vec missing element type", ErrUnknownType)
		}
		values := make([]interface{}, 0, length)
		for i := 0; i < length; i++ {
			v, err := Decode(*t.Elem, cur)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil

	case KindArray:
		if t.Elem == nil {
			return nil, fmt.Errorf("%w: array missing element type", ErrUnknownType)
		}
		values := make([]interface{}, 0, t.Len)
		for i := 0; i < t.Len; i++ {
			v, err := Decode(*t.Elem, cur)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t.Kind)
	}
}

// readLength reads the 4-byte little-endian length prefix shared by
// string, bytes and vec, and rejects lengths beyond MaxLength before the
// caller allocates or slices anything.
func readLength(cur *Cursor) (int, error) {
	b, err := cur.Take(4)
	if err != nil {
		return 0, err
	}
	length := binary.LittleEndian.Uint32(b)
	if length > MaxLength {
		return 0, ErrOversizedLength
	}
	return int(length), nil
}

func leBytesToBigUint(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

// leBytesToBigInt128 interprets 16 little-endian bytes as a signed two's
// complement integer.
func leBytesToBigInt128(b []byte) *big.Int {
	u := leBytesToBigUint(b)
	signBit := b[len(b)-1] & 0x80
	if signBit == 0 {
		return u
	}
	modulus := new(big.Int).Lsh(big.NewInt(1), 128)
	return new(big.Int).Sub(u, modulus)
}
