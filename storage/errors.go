package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist. Callers
	// should compare against this sentinel rather than the error the
	// underlying database returns.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned when inserting a record under a key
	// that is already populated.
	ErrAlreadyExists = errors.New("key already exists")
)
