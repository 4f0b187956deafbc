package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tyemirov/bunledge/internal/authkit"
)

// ProgressPatch carries a partial update. Only present fields are applied;
// absent fields leave the stored value untouched.
type ProgressPatch struct {
	Status           *ActivityStatus `json:"status"`
	CorrectQuestions *int            `json:"correct_questions"`
	TotalQuestions   *int            `json:"total_questions"`
	MasteredUnits    *int            `json:"mastered_units"`
	XPEarned         *int            `json:"xp_earned"`
	ElapsedMS        *int64          `json:"elapsed_ms"`
}

// Progress persists per-user, per-activity progress records and applies
// partial updates to them.
type Progress struct {
	db    *gorm.DB
	clock authkit.Clock
}

// NewProgress constructs the progress store. A nil clock falls back to the
// system clock.
func NewProgress(database *Database, clock authkit.Clock) *Progress {
	if clock == nil {
		clock = authkit.NewSystemClock()
	}
	return &Progress{db: database.db, clock: clock}
}

// ListForUser returns every progress record owned by the user.
func (progress *Progress) ListForUser(ctx context.Context, userID int64) ([]ActivityProgress, error) {
	var records []ActivityProgress
	listErr := progress.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&records).Error
	if listErr != nil {
		return nil, fmt.Errorf("progress.list: %w", listErr)
	}
	return records, nil
}

// Get returns the record for one (user, activity) pair.
func (progress *Progress) Get(ctx context.Context, userID int64, activityID int64) (ActivityProgress, error) {
	var record ActivityProgress
	getErr := progress.db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Take(&record).Error
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return ActivityProgress{}, fmt.Errorf("progress.get: %w", ErrNotFound)
		}
		return ActivityProgress{}, fmt.Errorf("progress.get: %w", getErr)
	}
	return record, nil
}

// Start creates the record for a (user, activity) pair in the in_progress
// state. The composite unique index turns duplicate starts into ErrConflict.
func (progress *Progress) Start(ctx context.Context, userID int64, activityID int64) (ActivityProgress, error) {
	now := progress.clock.Now()
	record := ActivityProgress{
		UserID:     userID,
		ActivityID: activityID,
		Status:     StatusInProgress,
		StartedAt:  &now,
		UpdatedAt:  now,
	}
	if createErr := progress.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return ActivityProgress{}, fmt.Errorf("progress.start: %w", ErrConflict)
		}
		return ActivityProgress{}, fmt.Errorf("progress.start: %w", createErr)
	}
	return record, nil
}

// ApplyUpdate applies a partial patch to the stored record and persists it.
// The returned flag reports whether this call was the transition into the
// completed state, which happens at most once per record lifetime.
func (progress *Progress) ApplyUpdate(ctx context.Context, userID int64, activityID int64, patch ProgressPatch) (ActivityProgress, bool, error) {
	record, getErr := progress.Get(ctx, userID, activityID)
	if getErr != nil {
		return ActivityProgress{}, false, getErr
	}

	completedNow := applyPatch(&record, patch, progress.clock.Now())

	if saveErr := progress.db.WithContext(ctx).Save(&record).Error; saveErr != nil {
		return ActivityProgress{}, false, fmt.Errorf("progress.update: %w", saveErr)
	}
	return record, completedNow, nil
}

// Reset deletes the record so the activity can be started over. Deleting and
// recreating is the only way to clear completed_at.
func (progress *Progress) Reset(ctx context.Context, userID int64, activityID int64) error {
	result := progress.db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Delete(&ActivityProgress{})
	if result.Error != nil {
		return fmt.Errorf("progress.reset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("progress.reset: %w", ErrNotFound)
	}
	return nil
}

// applyPatch copies present patch fields onto the record, stamps updated_at,
// and sets completed_at exactly once on the first transition into completed.
func applyPatch(record *ActivityProgress, patch ProgressPatch, now time.Time) bool {
	if patch.CorrectQuestions != nil {
		record.CorrectQuestions = *patch.CorrectQuestions
	}
	if patch.TotalQuestions != nil {
		record.TotalQuestions = *patch.TotalQuestions
	}
	if patch.MasteredUnits != nil {
		record.MasteredUnits = *patch.MasteredUnits
	}
	if patch.XPEarned != nil {
		record.XPEarned = patch.XPEarned
	}
	if patch.ElapsedMS != nil {
		record.ElapsedMS = *patch.ElapsedMS
	}

	completedNow := false
	if patch.Status != nil {
		record.Status = *patch.Status
		if *patch.Status == StatusCompleted && record.CompletedAt == nil {
			completedAt := now
			record.CompletedAt = &completedAt
			completedNow = true
		}
	}

	record.UpdatedAt = now
	return completedNow
}
