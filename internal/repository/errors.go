package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("already exists")
	// ErrConstraint is returned when a check or foreign key constraint rejects a write.
	ErrConstraint = errors.New("constraint violation")
)
