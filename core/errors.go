package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("entity not found")
	// ErrStorage is matched by every StorageError.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidArgument signals a caller supplied value that violates a
	// domain constraint (empty name, strength out of range, ...).
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError reports that a referenced entity does not exist. It is
// surfaced to callers rather than degraded, since it indicates a caller-side
// contract violation.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity kind and id.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) report true.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError for op. A nil err yields nil,
// and an err that already is a StorageError is returned unchanged.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) report true.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsNotFound reports whether err is (or wraps) a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStorage reports whether err is (or wraps) a storage failure.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
