package storage

import "errors"

// Storage errors common to every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey names a rejected insert of an already-recorded
	// signature. Store.InsertEvent does not return it: every backend reports
	// a duplicate signature as (0, nil).
	ErrDuplicateKey = errors.New("duplicate key: signature already recorded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedScheme is returned by Open when a storage URL's scheme
	// doesn't match any registered backend.
	ErrUnsupportedScheme = errors.New("unsupported storage url scheme")
)
