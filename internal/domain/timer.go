package domain

import (
	"time"
)

// TimerRecord is the single entity behind both timer states: while EndTime and
// ManualDurationSeconds are both nil the record is ongoing and accruing time;
// once either is set the record is committed and immutable.
type TimerRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    string     `gorm:"index;not null" json:"user_id"`
	TaskID    string     `gorm:"index;not null" json:"task_id"`
	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// ManualDurationSeconds is set only for entries created directly with a
	// known duration, never by the start/stop cycle.
	ManualDurationSeconds *int64 `json:"manual_duration_seconds,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// Ongoing reports whether the record is still accruing time.
func (r TimerRecord) Ongoing() bool {
	return r.EndTime == nil && r.ManualDurationSeconds == nil
}

// DurationSeconds returns the committed duration. Zero for ongoing records;
// elapsed time of an ongoing record is always computed against the server
// clock at read time, never read from the record.
func (r TimerRecord) DurationSeconds() int64 {
	switch {
	case r.ManualDurationSeconds != nil:
		return *r.ManualDurationSeconds
	case r.EndTime != nil:
		return int64(r.EndTime.Sub(r.StartTime) / time.Second)
	default:
		return 0
	}
}

// ElapsedSince returns whole seconds accrued between StartTime and now.
// Negative skew clamps to zero.
func (r TimerRecord) ElapsedSince(now time.Time) int64 {
	if now.Before(r.StartTime) {
		return 0
	}
	return int64(now.Sub(r.StartTime) / time.Second)
}
