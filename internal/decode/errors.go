package decode

import "errors"

var (
	ErrUnexpectedEOF   = errors.New("decode: unexpected end of input")
	ErrUnknownType     = errors.New("decode: unknown type")
	ErrInvalidBool     = errors.New("decode: invalid bool tag")
	ErrInvalidOption   = errors.New("decode: invalid option tag")
	ErrInvalidUTF8     = errors.New("decode: invalid utf-8 string")
	ErrOversizedLength = errors.New("decode: length-prefixed value exceeds maximum size")
)

// MaxLength bounds any length-prefixed value (string, bytes, vec) read from
// the wire, guarding against a corrupt or adversarial 4-byte length field
// causing an enormous allocation.
const MaxLength = 16 * 1024 * 1024
