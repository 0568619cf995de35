package webform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no submission exists for an entry id.
	ErrNotFound = errors.New("submission not found")

	// ErrInvalidWindow is returned for a pagination window with to < from.
	ErrInvalidWindow = errors.New("invalid pagination window")
)

// ConfigurationError reports a missing or malformed module parameter or
// catalog entry. It is fatal at construction time.
type ConfigurationError struct {
	Item   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Item, e.Reason)
}

// StoreError wraps any failure talking to the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialWriteError records one field value that could not be persisted
// while writing a submission. It never aborts the surrounding write.
type PartialWriteError struct {
	EntryID int64
	Field   string
	Value   string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("failed to write field %q of entry %d: %v", e.Field, e.EntryID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
