package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"timetracker/internal/domain"
	"timetracker/internal/store"
)

// TimerStore is the persistence the service needs; see store.TimerStore for
// the contract each method carries.
type TimerStore interface {
	CreateOngoing(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error)
	CreateManual(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error)
	Get(ctx context.Context, id string) (domain.TimerRecord, error)
	Commit(ctx context.Context, id string, end time.Time, notes string) (domain.TimerRecord, error)
	Delete(ctx context.Context, id string) error
	OngoingByUser(ctx context.Context, userID string) (domain.TimerRecord, error)
	ListOngoing(ctx context.Context) ([]domain.TimerRecord, error)
	DeleteOngoingByTask(ctx context.Context, taskID string) ([]domain.TimerRecord, error)
}

// TaskDirectory is the consumed task-management collaborator, specified only
// at this boundary.
type TaskDirectory interface {
	ExistsAndAssigned(ctx context.Context, userID, taskID string) (bool, error)
}

// Identity is the authenticated caller, produced by an external collaborator
// and trusted here.
type Identity struct {
	UserID   string
	Elevated bool
}

// Ongoing is a read snapshot of an ongoing record with its server-computed
// elapsed time. ElapsedSeconds is derived at call time and never stored.
type Ongoing struct {
	domain.TimerRecord
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

// TimerService enforces the one-active-timer invariant and executes all timer
// state transitions. It holds no timer state of its own; the store is the
// single source of truth, so any number of request workers may call into it
// concurrently.
type TimerService struct {
	store TimerStore
	tasks TaskDirectory
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a TimerService.
type Option func(*TimerService)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TimerService) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *TimerService) { s.log = log }
}

func New(store TimerStore, tasks TaskDirectory, opts ...Option) (*TimerService, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if tasks == nil {
		return nil, ErrTasksNil
	}

	s := &TimerService{
		store: store,
		tasks: tasks,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start creates the caller's single ongoing timer against taskID. A
// client-supplied clock reading is logged for skew diagnostics but never used
// for duration math; the record's start time is the server clock.
func (s *TimerService) Start(ctx context.Context, ident Identity, taskID, notes string, clientTime *time.Time) (domain.TimerRecord, error) {
	taskID = strings.TrimSpace(taskID)
	if ident.UserID == "" || taskID == "" {
		return domain.TimerRecord{}, ErrInvalidInput
	}

	assigned, err := s.tasks.ExistsAndAssigned(ctx, ident.UserID, taskID)
	if err != nil {
		return domain.TimerRecord{}, fmt.Errorf("task lookup: %w", err)
	}
	if !assigned {
		return domain.TimerRecord{}, ErrTaskNotAssigned
	}

	now := s.now().UTC()
	if clientTime != nil {
		skew := now.Sub(clientTime.UTC())
		s.log.Debug().
			Str("user_id", ident.UserID).
			Dur("client_skew", skew).
			Msg("client clock reading on start")
	}

	rec := domain.TimerRecord{
		ID:        uuid.NewString(),
		UserID:    ident.UserID,
		TaskID:    taskID,
		StartTime: now,
		Notes:     strings.TrimSpace(notes),
	}

	created, err := s.store.CreateOngoing(ctx, rec)
	if err != nil {
		if errors.Is(err, store.ErrOngoingExists) {
			return domain.TimerRecord{}, ErrAlreadyRunning
		}
		return domain.TimerRecord{}, fmt.Errorf("create ongoing timer: %w", err)
	}

	s.log.Info().
		Str("timer_id", created.ID).
		Str("user_id", created.UserID).
		Str("task_id", created.TaskID).
		Msg("timer started")

	return created, nil
}

// Stop commits the ongoing timer: the end time is set once, to the server
// clock, and the record becomes durable. Deliberately not idempotent; a
// second stop would fabricate a new interval, so it fails with ErrNotFound.
func (s *TimerService) Stop(ctx context.Context, ident Identity, timerID, notes string) (domain.TimerRecord, error) {
	if err := s.authorize(ctx, ident, timerID); err != nil {
		return domain.TimerRecord{}, err
	}

	committed, err := s.store.Commit(ctx, timerID, s.now().UTC(), strings.TrimSpace(notes))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TimerRecord{}, ErrNotFound
		}
		return domain.TimerRecord{}, fmt.Errorf("commit timer: %w", err)
	}

	s.log.Info().
		Str("timer_id", committed.ID).
		Str("user_id", committed.UserID).
		Int64("duration_seconds", committed.DurationSeconds()).
		Msg("timer stopped")

	return committed, nil
}

// ForceStop discards the ongoing timer: the record is deleted and nothing
// durable remains. Callers treat ErrNotFound as success when cleaning up.
func (s *TimerService) ForceStop(ctx context.Context, ident Identity, timerID string) error {
	if err := s.authorize(ctx, ident, timerID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, timerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete timer: %w", err)
	}

	s.log.Info().
		Str("timer_id", timerID).
		Str("user_id", ident.UserID).
		Msg("timer discarded")

	return nil
}

// GetOngoing returns the user's ongoing timer with elapsed seconds computed
// against the server clock at this instant, or nil when none is running.
// Side-effect free; this is the poll endpoint.
func (s *TimerService) GetOngoing(ctx context.Context, ident Identity, userID string) (*Ongoing, error) {
	if userID == "" {
		userID = ident.UserID
	}
	if userID != ident.UserID && !ident.Elevated {
		return nil, ErrUnauthorized
	}

	rec, err := s.store.OngoingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ongoing timer: %w", err)
	}

	return &Ongoing{TimerRecord: rec, ElapsedSeconds: rec.ElapsedSince(s.now().UTC())}, nil
}

// ListAllOngoing returns every ongoing timer system-wide, annotated with
// elapsed seconds. Elevated callers only.
func (s *TimerService) ListAllOngoing(ctx context.Context, ident Identity) ([]Ongoing, error) {
	if !ident.Elevated {
		return nil, ErrUnauthorized
	}

	records, err := s.store.ListOngoing(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ongoing timers: %w", err)
	}

	now := s.now().UTC()
	result := make([]Ongoing, 0, len(records))
	for _, rec := range records {
		result = append(result, Ongoing{TimerRecord: rec, ElapsedSeconds: rec.ElapsedSince(now)})
	}
	return result, nil
}

// CreateManualEntry creates a committed record directly from a known
// duration, bypassing the ongoing state entirely. It can never violate the
// one-active-timer invariant because no ongoing record is produced.
func (s *TimerService) CreateManualEntry(ctx context.Context, ident Identity, taskID string, start time.Time, durationSeconds int64, notes string) (domain.TimerRecord, error) {
	taskID = strings.TrimSpace(taskID)
	if ident.UserID == "" || taskID == "" || durationSeconds <= 0 {
		return domain.TimerRecord{}, ErrInvalidInput
	}

	assigned, err := s.tasks.ExistsAndAssigned(ctx, ident.UserID, taskID)
	if err != nil {
		return domain.TimerRecord{}, fmt.Errorf("task lookup: %w", err)
	}
	if !assigned {
		return domain.TimerRecord{}, ErrTaskNotAssigned
	}

	if start.IsZero() {
		start = s.now().UTC()
	}

	rec := domain.TimerRecord{
		ID:                    uuid.NewString(),
		UserID:                ident.UserID,
		TaskID:                taskID,
		StartTime:             start.UTC(),
		ManualDurationSeconds: &durationSeconds,
		Notes:                 strings.TrimSpace(notes),
	}

	created, err := s.store.CreateManual(ctx, rec)
	if err != nil {
		return domain.TimerRecord{}, fmt.Errorf("create manual entry: %w", err)
	}
	return created, nil
}

// HandleTaskDeleted force-stops every ongoing timer referencing the deleted
// task and reports how many were discarded. Called by the task lifecycle
// hook; an error here means the hook must retry, since an orphaned ongoing
// timer is a standing invariant violation.
func (s *TimerService) HandleTaskDeleted(ctx context.Context, taskID string) (int, error) {
	removed, err := s.store.DeleteOngoingByTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("force-stop timers for task %s: %w", taskID, err)
	}

	for _, rec := range removed {
		s.log.Warn().
			Str("timer_id", rec.ID).
			Str("user_id", rec.UserID).
			Str("task_id", taskID).
			Msg("timer discarded because its task was deleted")
	}
	return len(removed), nil
}

// authorize loads the record and checks ownership. Existence rechecks in the
// store's conditional write still decide races; this is only the ownership
// gate.
func (s *TimerService) authorize(ctx context.Context, ident Identity, timerID string) error {
	if timerID == "" {
		return ErrInvalidInput
	}

	rec, err := s.store.Get(ctx, timerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get timer: %w", err)
	}
	if rec.UserID != ident.UserID && !ident.Elevated {
		return ErrUnauthorized
	}
	if !rec.Ongoing() {
		return ErrNotFound
	}
	return nil
}
