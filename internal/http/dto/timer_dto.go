package dto

import "time"

type StartTimerRequest struct {
	TaskID string `json:"task_id"`
	Notes  string `json:"notes,omitempty"`
	// ClientTime is the device's own clock reading, logged for skew
	// diagnostics only; the server clock is authoritative.
	ClientTime *time.Time `json:"client_time,omitempty"`
}

type StopTimerRequest struct {
	Notes string `json:"notes,omitempty"`
}

type ManualEntryRequest struct {
	TaskID          string     `json:"task_id"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Notes           string     `json:"notes,omitempty"`
}

type TimerResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TaskID          string     `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Notes           string     `json:"notes,omitempty"`
}

type OngoingResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TaskID         string    `json:"task_id"`
	StartTime      time.Time `json:"start_time"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	Notes          string    `json:"notes,omitempty"`
}

type ForceStopResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
