package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")
)

// ErrReferenced is returned when a delete is rejected by a foreign key.
var ErrReferenced = errors.New("still referenced")
