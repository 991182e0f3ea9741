package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row does not exist in the caller's shop.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks input that violates an entity invariant.
	ErrInvalid = errors.New("invalid input")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

// SchemaError is an introspection or DDL failure. It is logged and recovered
// by the schema manager, never returned to repository callers.
type SchemaError struct {
	Table string
	Op    string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// WriteError means the caller's intended state change did not happen.
type WriteError struct {
	Entity string
	Op     string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError is a failed query. Repositories log it and return an empty result.
type ReadError struct {
	Entity string
	Op     string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
