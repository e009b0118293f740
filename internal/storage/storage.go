// Package storage defines the persistence port for event records.
//
// Two adapters implement Store and they deliberately differ on repeated ids:
// the postgres adapter rejects a second Store of the same event_id with an
// error wrapping ErrConflict, while the elastic adapter indexes by document id
// and silently overwrites. Callers that retry must account for both.
//
// They also differ on field length: the user_events columns are VARCHAR with
// per-column caps, so an over-long value fails the postgres Store (a plain
// Error, not ErrConflict) while the elastic adapter stores it unchanged.
package storage

import (
	"context"
	"errors"
	"fmt"

	"example.com/trackevent/internal/domain"
)

// ErrConflict marks a Store rejected because the event_id already exists.
var ErrConflict = errors.New("event id already exists")

// Store persists and looks up event records by event_id.
type Store interface {
	// Store durably writes rec and returns it as stored.
	Store(ctx context.Context, rec domain.Record) (domain.Record, error)
	// Fetch returns the record and true, or false when no record has that id.
	Fetch(ctx context.Context, eventID string) (domain.Record, bool, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Error is a backend failure. Its message carries backend detail and is meant
// for logs only.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
