package store

import "errors"

var (
	// ErrConflict reports a write that would double-book a calendar or break a uniqueness rule.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned for missing rows and for rows owned by another business.
	ErrNotFound = errors.New("not found")
	// ErrIdempotencyConflict means an idempotency key was reused with a different booking.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
