package tasks

import (
	"context"
	"errors"
	"sync"
)

var ErrUnknownTask = errors.New("unknown task")

// DeleteListener observes task deletions. Delivery must be at-least-once on
// the listener's side; the directory only hands the event over.
type DeleteListener func(taskID string) error

// Directory is the in-memory stand-in for the external task-management
// collaborator, specified only at its boundary: assignment lookup plus a
// deletion event feed.
type Directory struct {
	mu          sync.RWMutex
	assignments map[string]map[string]struct{}
	onDelete    DeleteListener
}

func NewDirectory() *Directory {
	return &Directory{assignments: make(map[string]map[string]struct{})}
}

// Assign registers taskID and assigns it to the given users.
func (d *Directory) Assign(taskID string, userIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.assignments[taskID]
	if !ok {
		set = make(map[string]struct{})
		d.assignments[taskID] = set
	}
	for _, userID := range userIDs {
		set[userID] = struct{}{}
	}
}

// ExistsAndAssigned implements service.TaskDirectory.
func (d *Directory) ExistsAndAssigned(_ context.Context, userID, taskID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set, ok := d.assignments[taskID]
	if !ok {
		return false, nil
	}
	_, assigned := set[userID]
	return assigned, nil
}

// OnDelete registers the deletion listener. Must be called before Delete.
func (d *Directory) OnDelete(fn DeleteListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDelete = fn
}

// Delete removes the task and emits the deletion event. The event is handed
// to the listener before the assignment disappears, so a dependent ongoing
// timer is never left without a termination trigger.
func (d *Directory) Delete(taskID string) error {
	d.mu.Lock()
	if _, ok := d.assignments[taskID]; !ok {
		d.mu.Unlock()
		return ErrUnknownTask
	}
	fn := d.onDelete
	d.mu.Unlock()

	if fn != nil {
		if err := fn(taskID); err != nil {
			return err
		}
	}

	d.mu.Lock()
	delete(d.assignments, taskID)
	d.mu.Unlock()
	return nil
}
