package store

import (
	"context"
	"errors"
	"time"

	"timetracker/internal/domain"
)

var (
	// ErrNotFound is returned when no ongoing record matches; a record that
	// exists but is already committed is just as gone for every conditional
	// operation.
	ErrNotFound = errors.New("timer record not found")

	// ErrOngoingExists is returned by CreateOngoing when the user already has
	// an ongoing record. The store's uniqueness guarantee is the only arbiter
	// of the one-active-timer invariant.
	ErrOngoingExists = errors.New("ongoing timer already exists for user")
)

// TimerStore persists TimerRecords. Implementations must make CreateOngoing an
// atomic check-and-insert, and Commit/Delete conditional on the record still
// being ongoing, so racing callers observe at most one success.
type TimerStore interface {
	// CreateOngoing inserts rec as the user's single ongoing record, or fails
	// with ErrOngoingExists.
	CreateOngoing(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error)

	// CreateManual inserts an already-committed record (manual duration set).
	// It never creates an ongoing record.
	CreateManual(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error)

	// Get returns the record by id regardless of state.
	Get(ctx context.Context, id string) (domain.TimerRecord, error)

	// Commit sets the end time on an ongoing record, merging notes when
	// non-empty. Fails with ErrNotFound if the record is missing or already
	// committed.
	Commit(ctx context.Context, id string, end time.Time, notes string) (domain.TimerRecord, error)

	// Delete removes an ongoing record without committing it. Fails with
	// ErrNotFound if the record is missing or already committed.
	Delete(ctx context.Context, id string) error

	// OngoingByUser returns the user's ongoing record, or ErrNotFound.
	OngoingByUser(ctx context.Context, userID string) (domain.TimerRecord, error)

	// ListOngoing returns every ongoing record system-wide.
	ListOngoing(ctx context.Context) ([]domain.TimerRecord, error)

	// DeleteOngoingByTask removes all ongoing records referencing taskID and
	// returns them. An empty result is not an error.
	DeleteOngoingByTask(ctx context.Context, taskID string) ([]domain.TimerRecord, error)
}
