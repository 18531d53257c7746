package service

import "errors"

var (
	// ErrAlreadyRunning rejects a start while the user has an ongoing timer.
	// The running timer is never silently replaced.
	ErrAlreadyRunning = errors.New("a timer is already running for this user")

	// ErrNotFound covers both a missing record and one that is no longer
	// ongoing; a double stop and a double discard look the same to callers.
	ErrNotFound = errors.New("timer not found")

	// ErrUnauthorized means the caller is neither the record's owner nor
	// elevated.
	ErrUnauthorized = errors.New("not allowed to operate on this timer")

	// ErrTaskNotAssigned rejects a start against a task the user cannot
	// track.
	ErrTaskNotAssigned = errors.New("task does not exist or is not assigned to user")

	ErrInvalidInput = errors.New("invalid input")
	ErrStoreNil     = errors.New("timer store is nil")
	ErrTasksNil     = errors.New("task directory is nil")
)
