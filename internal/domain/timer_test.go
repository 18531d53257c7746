package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOngoing(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("NoEndNoManual", func(t *testing.T) {
		rec := TimerRecord{StartTime: start}
		assert.True(t, rec.Ongoing())
	})

	t.Run("Committed", func(t *testing.T) {
		end := start.Add(time.Hour)
		rec := TimerRecord{StartTime: start, EndTime: &end}
		assert.False(t, rec.Ongoing())
	})

	t.Run("Manual", func(t *testing.T) {
		dur := int64(1800)
		rec := TimerRecord{StartTime: start, ManualDurationSeconds: &dur}
		assert.False(t, rec.Ongoing())
	})
}

func TestDurationSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("FromEndTime", func(t *testing.T) {
		end := start.Add(95 * time.Second)
		rec := TimerRecord{StartTime: start, EndTime: &end}
		assert.Equal(t, int64(95), rec.DurationSeconds())
	})

	t.Run("FromManualDuration", func(t *testing.T) {
		dur := int64(3600)
		rec := TimerRecord{StartTime: start, ManualDurationSeconds: &dur}
		assert.Equal(t, int64(3600), rec.DurationSeconds())
	})

	t.Run("OngoingIsZero", func(t *testing.T) {
		rec := TimerRecord{StartTime: start}
		assert.Equal(t, int64(0), rec.DurationSeconds())
	})
}

func TestElapsedSince(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := TimerRecord{StartTime: start}

	assert.Equal(t, int64(5), rec.ElapsedSince(start.Add(5*time.Second)))
	assert.Equal(t, int64(5), rec.ElapsedSince(start.Add(5900*time.Millisecond)))

	// clock skew never yields a negative elapsed
	assert.Equal(t, int64(0), rec.ElapsedSince(start.Add(-time.Minute)))
}
