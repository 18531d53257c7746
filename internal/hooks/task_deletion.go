package hooks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull = errors.New("task deletion queue is full")
	ErrClosed    = errors.New("task deletion hook is closed")
)

// Delivery retry pacing. Doubles per attempt up to the cap; a deletion event
// is never dropped while the hook is running.
const (
	initialRetryDelay = 250 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// TimerTerminator force-stops every ongoing timer that referenced a deleted
// task. Returns how many were discarded.
type TimerTerminator interface {
	HandleTaskDeleted(ctx context.Context, taskID string) (int, error)
}

// TaskDeletionHook delivers task-deletion events to the timer service with
// an at-least-once guarantee: a failed delivery (storage unavailable) is
// retried with backoff until it succeeds or the hook shuts down.
type TaskDeletionHook struct {
	queue chan string
	svc   TimerTerminator
	log   zerolog.Logger

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(queueSize int, svc TimerTerminator, log zerolog.Logger) *TaskDeletionHook {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskDeletionHook{
		queue:  make(chan string, queueSize),
		svc:    svc,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue accepts a deletion event without blocking. Overflow surfaces an
// error to the emitter rather than dropping the event silently.
func (h *TaskDeletionHook) Enqueue(taskID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	select {
	case h.queue <- taskID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the delivery workers.
func (h *TaskDeletionHook) Start(workers int) {
	for range workers {
		h.wg.Add(1)
		go h.worker()
	}
}

// Shutdown stops intake, waits for in-flight deliveries, then cancels any
// remaining retry loops.
func (h *TaskDeletionHook) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		return ctx.Err()
	}
}

func (h *TaskDeletionHook) worker() {
	defer h.wg.Done()

	for taskID := range h.queue {
		h.deliver(taskID)
	}
}

// deliver retries until the service accepts the event. Giving up would leave
// orphaned ongoing timers referencing a nonexistent task.
func (h *TaskDeletionHook) deliver(taskID string) {
	delay := initialRetryDelay

	for {
		n, err := h.svc.HandleTaskDeleted(h.ctx, taskID)
		if err == nil {
			if n > 0 {
				h.log.Info().
					Str("task_id", taskID).
					Int("discarded", n).
					Msg("force-stopped timers for deleted task")
			}
			return
		}

		h.log.Error().
			Err(err).
			Str("task_id", taskID).
			Dur("retry_in", delay).
			Msg("task deletion delivery failed")

		select {
		case <-h.ctx.Done():
			h.log.Error().
				Str("task_id", taskID).
				Msg("shutting down with undelivered task deletion")
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
