package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no vendor matches the given id.
	ErrNotFound = errors.New("vendor not found")
	// ErrStorageUnavailable marks a failed or timed out storage round trip.
	// Callers may retry.
	ErrStorageUnavailable = errors.New("vendor storage unavailable")

	// ErrNoDocuments and ErrDuplicateKey are returned by Collection
	// implementations.
	ErrNoDocuments  = errors.New("no documents in result")
	ErrDuplicateKey = errors.New("duplicate key")
)

type ConflictKind string

const (
	DuplicateName  ConflictKind = "duplicate_name"
	DuplicatePhone ConflictKind = "duplicate_phone"
)

// ConflictError reports a uniqueness violation on create or update.
type ConflictError struct {
	Kind ConflictKind
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case DuplicateName:
		return "a vendor with this name already exists"
	case DuplicatePhone:
		return "a vendor with this phone number already exists"
	}
	return fmt.Sprintf("vendor conflict: %s", string(e.Kind))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
