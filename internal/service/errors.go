package service

import (
	"fmt"
	"strings"

	"usermanager/internal/repository"
	"usermanager/internal/validation"
)

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = repository.ErrNotFound

// ValidationError carries field-level messages for rejected input. Nothing was mutated.
type ValidationError struct {
	Errors validation.Errors
}

func (e *ValidationError) Error() string {
	fields := e.Errors.Fields()
	return "validation failed: " + strings.Join(fields, ", ")
}

// StorageError wraps a failure of the blob backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a database failure, including constraint races.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
