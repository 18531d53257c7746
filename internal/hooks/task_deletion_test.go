package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTerminator struct {
	mu        sync.Mutex
	calls     []string
	failFirst int
}

func (f *fakeTerminator) HandleTaskDeleted(_ context.Context, taskID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, taskID)
	if f.failFirst > 0 {
		f.failFirst--
		return 0, errors.New("storage unavailable")
	}
	return 1, nil
}

func (f *fakeTerminator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestDelivery(t *testing.T) {
	term := &fakeTerminator{}
	hook := New(10, term, zerolog.Nop())
	hook.Start(1)
	defer shutdown(t, hook)

	require.NoError(t, hook.Enqueue("task-7"))

	waitFor(t, func() bool { return term.callCount() == 1 })
}

func TestDelivery_RetriesUntilSuccess(t *testing.T) {
	term := &fakeTerminator{failFirst: 2}
	hook := New(10, term, zerolog.Nop())
	hook.Start(1)
	defer shutdown(t, hook)

	require.NoError(t, hook.Enqueue("task-7"))

	// two failures, then the third attempt lands
	waitFor(t, func() bool { return term.callCount() == 3 })
}

func TestEnqueue_QueueFull(t *testing.T) {
	term := &fakeTerminator{}
	// no workers running, so the queue only drains on shutdown
	hook := New(1, term, zerolog.Nop())

	require.NoError(t, hook.Enqueue("task-1"))
	assert.ErrorIs(t, hook.Enqueue("task-2"), ErrQueueFull)
}

func TestEnqueue_AfterShutdown(t *testing.T) {
	term := &fakeTerminator{}
	hook := New(10, term, zerolog.Nop())
	hook.Start(1)
	shutdown(t, hook)

	assert.ErrorIs(t, hook.Enqueue("task-7"), ErrClosed)
}

func TestShutdown_DrainsQueue(t *testing.T) {
	term := &fakeTerminator{}
	hook := New(10, term, zerolog.Nop())
	hook.Start(2)

	for range 5 {
		require.NoError(t, hook.Enqueue("task-7"))
	}
	shutdown(t, hook)

	assert.Equal(t, 5, term.callCount())
}

func shutdown(t *testing.T, hook *TaskDeletionHook) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hook.Shutdown(ctx))
}
