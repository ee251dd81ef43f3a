package replication

import "errors"

var (
	ErrMalformedMessage = errors.New("malformed world delta message")
	ErrTooManyEntries   = errors.New("too many entries for wire encoding")
	ErrConflictingFlags = errors.New("delta is both new and destroyed")
)
