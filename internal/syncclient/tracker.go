package syncclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client-side sentinels. Anything else coming back from the API is a
// transport failure and is treated as transient.
var (
	ErrAlreadyRunning  = errors.New("a timer is already running for this user")
	ErrNotFound        = errors.New("timer not found")
	ErrTaskNotAssigned = errors.New("task does not exist or is not assigned to user")
	ErrUnauthorized    = errors.New("not allowed")

	ErrAlreadyTracking = errors.New("this device is already tracking a timer")
	ErrNotTracking     = errors.New("no timer is being tracked on this device")
)

// State is the per-device tracking state.
type State uint8

const (
	// StateIdle means no known ongoing timer; polling is suspended.
	StateIdle State = iota

	// StateTracking means a timer is believed running; the display counter
	// ticks locally and polls reconcile it against the server.
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateTracking:
		return "TRACKING"
	default:
		return "UNKNOWN"
	}
}

// StopReason tells the user-facing layer why tracking ended.
type StopReason uint8

const (
	// StopCommitted: this device stopped and saved the timer.
	StopCommitted StopReason = iota

	// StopDiscarded: this device discarded the timer without saving.
	StopDiscarded

	// StopRemote: a poll found no ongoing timer; another device stopped it
	// or the system force-stopped it. Accrued time is gone.
	StopRemote

	// StopTaskDeleted: an out-of-band notification reported the tracked
	// task deleted.
	StopTaskDeleted
)

// OngoingSnapshot is the server's authoritative answer to a poll.
type OngoingSnapshot struct {
	TimerID        string
	TaskID         string
	StartTime      time.Time
	ElapsedSeconds int64
	Notes          string
}

// CommittedEntry is the durable record a stop produces.
type CommittedEntry struct {
	TimerID         string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
}

// API is the server the tracker talks to.
type API interface {
	Start(ctx context.Context, taskID, notes string) (OngoingSnapshot, error)
	Stop(ctx context.Context, timerID, notes string) (CommittedEntry, error)
	Discard(ctx context.Context, timerID string) error
	Ongoing(ctx context.Context) (*OngoingSnapshot, error)
}

const (
	defaultTickInterval = 1 * time.Second
	defaultPollInterval = 2 * time.Second
	pollTimeout         = 5 * time.Second
)

// Tracker is the per-device sync client: a two-state machine that ticks a
// display counter locally while tracking and resets it to the server's
// elapsed value on every poll. The server always wins; local ticks are
// display smoothing, never truth.
type Tracker struct {
	api API
	log zerolog.Logger

	tickInterval time.Duration
	pollInterval time.Duration

	mu           sync.Mutex
	state        State
	timerID      string
	taskID       string
	elapsed      int64
	lastPoll     time.Time
	pollInFlight bool
	loopCancel   context.CancelFunc

	onReconcile func(elapsedSeconds int64)
	onStopped   func(reason StopReason)

	wg sync.WaitGroup
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

func WithLogger(log zerolog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = log }
}

// WithIntervals overrides tick and poll cadence, for tests.
func WithIntervals(tick, poll time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.tickInterval = tick
		t.pollInterval = poll
	}
}

// OnReconcile registers a callback fired after each successful poll with the
// server's elapsed value.
func OnReconcile(fn func(elapsedSeconds int64)) TrackerOption {
	return func(t *Tracker) { t.onReconcile = fn }
}

// OnStopped registers a callback fired on every Tracking -> Idle transition.
func OnStopped(fn func(reason StopReason)) TrackerOption {
	return func(t *Tracker) { t.onStopped = fn }
}

func NewTracker(api API, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		api:          api,
		log:          zerolog.Nop(),
		tickInterval: defaultTickInterval,
		pollInterval: defaultPollInterval,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current tracking state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed returns the displayed elapsed seconds.
func (t *Tracker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// TimerID returns the tracked timer id, empty while Idle.
func (t *Tracker) TimerID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timerID
}

// Start issues the start command and, on success, enters Tracking and
// resumes polling.
func (t *Tracker) Start(ctx context.Context, taskID, notes string) error {
	t.mu.Lock()
	if t.state == StateTracking {
		t.mu.Unlock()
		return ErrAlreadyTracking
	}
	t.mu.Unlock()

	snap, err := t.api.Start(ctx, taskID, notes)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.state = StateTracking
	t.timerID = snap.TimerID
	t.taskID = snap.TaskID
	t.elapsed = snap.ElapsedSeconds
	t.lastPoll = time.Now()
	t.loopCancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.loop(loopCtx)

	t.log.Info().Str("timer_id", snap.TimerID).Str("task_id", snap.TaskID).Msg("tracking started")
	return nil
}

// StopSave commits the tracked timer and returns the durable entry. A
// NotFound answer means the timer vanished server-side; the device still
// goes Idle, and the error is surfaced verbatim.
func (t *Tracker) StopSave(ctx context.Context, notes string) (CommittedEntry, error) {
	t.mu.Lock()
	if t.state != StateTracking {
		t.mu.Unlock()
		return CommittedEntry{}, ErrNotTracking
	}
	timerID := t.timerID
	t.mu.Unlock()

	entry, err := t.api.Stop(ctx, timerID, notes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			t.toIdle(StopRemote)
		}
		return CommittedEntry{}, err
	}

	t.toIdle(StopCommitted)
	return entry, nil
}

// Discard force-stops the tracked timer without saving. A NotFound answer
// means there was nothing to clean up, which is success.
func (t *Tracker) Discard(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateTracking {
		t.mu.Unlock()
		return ErrNotTracking
	}
	timerID := t.timerID
	t.mu.Unlock()

	if err := t.api.Discard(ctx, timerID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	t.toIdle(StopDiscarded)
	return nil
}

// NotifyTaskDeleted is the out-of-band path for task deletions: if the
// deleted task is the one being tracked, the device goes Idle immediately
// instead of waiting for the next poll.
func (t *Tracker) NotifyTaskDeleted(taskID string) {
	t.mu.Lock()
	match := t.state == StateTracking && t.taskID == taskID
	t.mu.Unlock()

	if match {
		t.toIdle(StopTaskDeleted)
	}
}

// Close stops the poll loop and waits for it to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.loopCancel != nil {
		t.loopCancel()
		t.loopCancel = nil
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// loop runs only while Tracking: one ticker drives both the display counter
// and the poll cadence. It exits on the transition to Idle, which is what
// suspends polling entirely while Idle.
func (t *Tracker) loop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.state != StateTracking {
			t.mu.Unlock()
			return
		}
		t.elapsed++

		due := time.Since(t.lastPoll) >= t.pollInterval
		if due && !t.pollInFlight {
			t.pollInFlight = true
			t.wg.Add(1)
			go t.poll(ctx)
		}
		t.mu.Unlock()
	}
}

// poll fetches the authoritative snapshot and fully replaces local state
// with it. At most one poll is in flight at a time; a transport failure
// changes nothing and the next tick retries.
func (t *Tracker) poll(ctx context.Context) {
	defer t.wg.Done()

	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	snap, err := t.api.Ongoing(pollCtx)
	cancel()

	t.mu.Lock()
	t.pollInFlight = false
	t.lastPoll = time.Now()

	if t.state != StateTracking {
		t.mu.Unlock()
		return
	}

	if err != nil {
		t.mu.Unlock()
		t.log.Debug().Err(err).Msg("poll failed, retrying next tick")
		return
	}

	if snap == nil {
		t.mu.Unlock()
		t.toIdle(StopRemote)
		return
	}

	// Server value wins outright, never merged with local ticks.
	t.timerID = snap.TimerID
	t.taskID = snap.TaskID
	t.elapsed = snap.ElapsedSeconds
	fn := t.onReconcile
	elapsed := t.elapsed
	t.mu.Unlock()

	if fn != nil {
		fn(elapsed)
	}
}

func (t *Tracker) toIdle(reason StopReason) {
	t.mu.Lock()
	if t.state == StateIdle {
		t.mu.Unlock()
		return
	}
	t.state = StateIdle
	t.timerID = ""
	t.taskID = ""
	t.elapsed = 0
	if t.loopCancel != nil {
		t.loopCancel()
		t.loopCancel = nil
	}
	fn := t.onStopped
	t.mu.Unlock()

	t.log.Info().Uint8("reason", uint8(reason)).Msg("tracking stopped")
	if fn != nil {
		fn(reason)
	}
}
