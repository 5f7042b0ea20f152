package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions the orchestrator recovers from locally.
var (
	// ErrNotFound means the entity vanished upstream.
	ErrNotFound = errors.New("entity not found upstream")
	// ErrRedirected means a product identifier now resolves elsewhere.
	ErrRedirected = errors.New("entity redirected upstream")
)

// FieldComputationError reports a field computation that dereferenced a
// malformed or absent raw value. It aborts normalization of one record only.
type FieldComputationError struct {
	Field    string
	EntityID string
	Err      error
}

func (e *FieldComputationError) Error() string {
	return fmt.Sprintf("field %q of entity %q: %v", e.Field, e.EntityID, e.Err)
}

func (e *FieldComputationError) Unwrap() error { return e.Err }

// UnknownJobKindError reports a queue entry with an unrecognized kind.
// This is a population bug, not a data error, and has no recovery.
type UnknownJobKindError struct {
	Kind Kind
}

func (e *UnknownJobKindError) Error() string {
	return fmt.Sprintf("no handler for job kind %q", e.Kind)
}
