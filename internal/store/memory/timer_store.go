package memory

import (
	"context"
	"sync"
	"time"

	"timetracker/internal/domain"
	"timetracker/internal/store"
)

// TimerStore is a mutex-guarded in-memory implementation. The single lock
// makes CreateOngoing a true check-and-insert: no two concurrent starts for
// the same user can both observe "no ongoing record".
type TimerStore struct {
	mu      sync.RWMutex
	records map[string]domain.TimerRecord
	// ongoing indexes the one ongoing record id per user
	ongoing map[string]string
}

func New() *TimerStore {
	return &TimerStore{
		records: make(map[string]domain.TimerRecord),
		ongoing: make(map[string]string),
	}
}

func (ts *TimerStore) CreateOngoing(_ context.Context, rec domain.TimerRecord) (domain.TimerRecord, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.ongoing[rec.UserID]; exists {
		return domain.TimerRecord{}, store.ErrOngoingExists
	}

	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	ts.records[rec.ID] = rec
	ts.ongoing[rec.UserID] = rec.ID

	return rec, nil
}

func (ts *TimerStore) CreateManual(_ context.Context, rec domain.TimerRecord) (domain.TimerRecord, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	ts.records[rec.ID] = rec

	return rec, nil
}

func (ts *TimerStore) Get(_ context.Context, id string) (domain.TimerRecord, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	rec, ok := ts.records[id]
	if !ok {
		return domain.TimerRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (ts *TimerStore) Commit(_ context.Context, id string, end time.Time, notes string) (domain.TimerRecord, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.records[id]
	if !ok || !rec.Ongoing() {
		return domain.TimerRecord{}, store.ErrNotFound
	}

	rec.EndTime = &end
	if notes != "" {
		rec.Notes = notes
	}
	rec.UpdatedAt = time.Now()

	ts.records[id] = rec
	delete(ts.ongoing, rec.UserID)

	return rec, nil
}

func (ts *TimerStore) Delete(_ context.Context, id string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.records[id]
	if !ok || !rec.Ongoing() {
		return store.ErrNotFound
	}

	delete(ts.records, id)
	delete(ts.ongoing, rec.UserID)

	return nil
}

func (ts *TimerStore) OngoingByUser(_ context.Context, userID string) (domain.TimerRecord, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	id, ok := ts.ongoing[userID]
	if !ok {
		return domain.TimerRecord{}, store.ErrNotFound
	}
	return ts.records[id], nil
}

func (ts *TimerStore) ListOngoing(_ context.Context) ([]domain.TimerRecord, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	records := make([]domain.TimerRecord, 0, len(ts.ongoing))
	for _, id := range ts.ongoing {
		records = append(records, ts.records[id])
	}
	return records, nil
}

func (ts *TimerStore) DeleteOngoingByTask(_ context.Context, taskID string) ([]domain.TimerRecord, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var removed []domain.TimerRecord
	for userID, id := range ts.ongoing {
		rec := ts.records[id]
		if rec.TaskID != taskID {
			continue
		}
		removed = append(removed, rec)
		delete(ts.records, id)
		delete(ts.ongoing, userID)
	}
	return removed, nil
}
