package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"timetracker/internal/domain"
	"timetracker/internal/store"
)

// oneOngoingIndex enforces the one-active-timer invariant in the database:
// at most one row per user may be ongoing. The constraint is the lock; a
// losing concurrent insert fails instead of producing a second ongoing row.
const oneOngoingIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_timer_records_one_ongoing
ON timer_records (user_id)
WHERE end_time IS NULL AND manual_duration_seconds IS NULL`

// TimerStore is the durable gorm/sqlite implementation of store.TimerStore.
type TimerStore struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and runs migrations. The busy
// timeout makes concurrent writers queue instead of failing with SQLITE_BUSY.
func Open(path string) (*TimerStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if err := db.AutoMigrate(&domain.TimerRecord{}); err != nil {
		return nil, fmt.Errorf("migrate timer records: %w", err)
	}
	if err := db.Exec(oneOngoingIndex).Error; err != nil {
		return nil, fmt.Errorf("create ongoing index: %w", err)
	}

	return &TimerStore{db: db}, nil
}

func (ts *TimerStore) CreateOngoing(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error) {
	err := ts.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.TimerRecord{}, store.ErrOngoingExists
		}
		return domain.TimerRecord{}, fmt.Errorf("insert ongoing record: %w", err)
	}
	return rec, nil
}

func (ts *TimerStore) CreateManual(ctx context.Context, rec domain.TimerRecord) (domain.TimerRecord, error) {
	if err := ts.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.TimerRecord{}, fmt.Errorf("insert manual record: %w", err)
	}
	return rec, nil
}

func (ts *TimerStore) Get(ctx context.Context, id string) (domain.TimerRecord, error) {
	var rec domain.TimerRecord
	err := ts.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TimerRecord{}, store.ErrNotFound
		}
		return domain.TimerRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Commit sets end_time only if the row is still ongoing; RowsAffected doubles
// as the exclusion mechanism between racing stop calls.
func (ts *TimerStore) Commit(ctx context.Context, id string, end time.Time, notes string) (domain.TimerRecord, error) {
	updates := map[string]any{
		"end_time":   end,
		"updated_at": time.Now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}

	res := ts.db.WithContext(ctx).
		Model(&domain.TimerRecord{}).
		Where("id = ? AND end_time IS NULL AND manual_duration_seconds IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return domain.TimerRecord{}, fmt.Errorf("commit record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.TimerRecord{}, store.ErrNotFound
	}

	return ts.Get(ctx, id)
}

func (ts *TimerStore) Delete(ctx context.Context, id string) error {
	res := ts.db.WithContext(ctx).
		Where("id = ? AND end_time IS NULL AND manual_duration_seconds IS NULL", id).
		Delete(&domain.TimerRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (ts *TimerStore) OngoingByUser(ctx context.Context, userID string) (domain.TimerRecord, error) {
	var rec domain.TimerRecord
	err := ts.db.WithContext(ctx).
		First(&rec, "user_id = ? AND end_time IS NULL AND manual_duration_seconds IS NULL", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TimerRecord{}, store.ErrNotFound
		}
		return domain.TimerRecord{}, fmt.Errorf("get ongoing record: %w", err)
	}
	return rec, nil
}

func (ts *TimerStore) ListOngoing(ctx context.Context) ([]domain.TimerRecord, error) {
	var records []domain.TimerRecord
	err := ts.db.WithContext(ctx).
		Where("end_time IS NULL AND manual_duration_seconds IS NULL").
		Order("start_time").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list ongoing records: %w", err)
	}
	return records, nil
}

func (ts *TimerStore) DeleteOngoingByTask(ctx context.Context, taskID string) ([]domain.TimerRecord, error) {
	var removed []domain.TimerRecord
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("task_id = ? AND end_time IS NULL AND manual_duration_seconds IS NULL", taskID).
			Find(&removed).Error; err != nil {
			return err
		}
		if len(removed) == 0 {
			return nil
		}
		ids := make([]string, 0, len(removed))
		for _, rec := range removed {
			ids = append(ids, rec.ID)
		}
		return tx.Where("id IN ?", ids).Delete(&domain.TimerRecord{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete ongoing by task: %w", err)
	}
	return removed, nil
}
