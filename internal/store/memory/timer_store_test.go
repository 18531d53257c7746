package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/domain"
	"timetracker/internal/store"
)

func ongoingRec(id, userID, taskID string) domain.TimerRecord {
	return domain.TimerRecord{
		ID:        id,
		UserID:    userID,
		TaskID:    taskID,
		StartTime: time.Now().UTC(),
	}
}

func TestCreateOngoing_SecondFails(t *testing.T) {
	ts := New()
	ctx := context.Background()

	_, err := ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-1"))
	require.NoError(t, err)

	_, err = ts.CreateOngoing(ctx, ongoingRec("t2", "u1", "task-2"))
	assert.ErrorIs(t, err, store.ErrOngoingExists)

	// another user is unaffected
	_, err = ts.CreateOngoing(ctx, ongoingRec("t3", "u2", "task-1"))
	assert.NoError(t, err)
}

func TestCreateOngoing_ConcurrentSingleWinner(t *testing.T) {
	ts := New()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ts.CreateOngoing(ctx, ongoingRec(fmt.Sprintf("timer-%d", i), "u1", "task-1"))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, store.ErrOngoingExists)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent start must win")

	records, err := ts.ListOngoing(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCommit_OnlyOnce(t *testing.T) {
	ts := New()
	ctx := context.Background()

	created, err := ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-1"))
	require.NoError(t, err)

	end := created.StartTime.Add(42 * time.Second)
	committed, err := ts.Commit(ctx, "t1", end, "wrote tests")
	require.NoError(t, err)
	require.NotNil(t, committed.EndTime)
	assert.Equal(t, int64(42), committed.DurationSeconds())
	assert.Equal(t, "wrote tests", committed.Notes)

	// a second commit would fabricate a new interval
	_, err = ts.Commit(ctx, "t1", end.Add(time.Minute), "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// the slot is free again
	_, err = ts.CreateOngoing(ctx, ongoingRec("t2", "u1", "task-1"))
	assert.NoError(t, err)
}

func TestCommit_KeepsNotesWhenEmpty(t *testing.T) {
	ts := New()
	ctx := context.Background()

	rec := ongoingRec("t1", "u1", "task-1")
	rec.Notes = "original"
	_, err := ts.CreateOngoing(ctx, rec)
	require.NoError(t, err)

	committed, err := ts.Commit(ctx, "t1", time.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, "original", committed.Notes)
}

func TestDelete_RemovesRecordEntirely(t *testing.T) {
	ts := New()
	ctx := context.Background()

	_, err := ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-1"))
	require.NoError(t, err)

	require.NoError(t, ts.Delete(ctx, "t1"))

	_, err = ts.Get(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = ts.OngoingByUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// idempotence boundary: the second delete has nothing to remove
	assert.ErrorIs(t, ts.Delete(ctx, "t1"), store.ErrNotFound)
}

func TestDelete_CommittedIsNotFound(t *testing.T) {
	ts := New()
	ctx := context.Background()

	_, err := ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-1"))
	require.NoError(t, err)
	_, err = ts.Commit(ctx, "t1", time.Now(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, ts.Delete(ctx, "t1"), store.ErrNotFound)

	// the committed record is durable
	_, err = ts.Get(ctx, "t1")
	assert.NoError(t, err)
}

func TestCreateManual_DoesNotOccupySlot(t *testing.T) {
	ts := New()
	ctx := context.Background()

	dur := int64(600)
	rec := ongoingRec("m1", "u1", "task-1")
	rec.ManualDurationSeconds = &dur
	_, err := ts.CreateManual(ctx, rec)
	require.NoError(t, err)

	_, err = ts.OngoingByUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-1"))
	assert.NoError(t, err)
}

func TestDeleteOngoingByTask(t *testing.T) {
	ts := New()
	ctx := context.Background()

	_, err := ts.CreateOngoing(ctx, ongoingRec("t1", "u1", "task-7"))
	require.NoError(t, err)
	_, err = ts.CreateOngoing(ctx, ongoingRec("t2", "u2", "task-7"))
	require.NoError(t, err)
	_, err = ts.CreateOngoing(ctx, ongoingRec("t3", "u3", "task-9"))
	require.NoError(t, err)

	removed, err := ts.DeleteOngoingByTask(ctx, "task-7")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	records, err := ts.ListOngoing(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "t3", records[0].ID)

	// nothing matching is fine
	removed, err = ts.DeleteOngoingByTask(ctx, "task-7")
	require.NoError(t, err)
	assert.Empty(t, removed)
}
