// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrPrecondition indicates an operation attempted against a document
	// whose signature state does not permit it.
	ErrPrecondition = errors.New("precondition failed")

	// ErrRequestIDTaken indicates a signature request id is already bound to
	// another document (unique constraint violation).
	ErrRequestIDTaken = errors.New("signature request id already in use")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")
)
