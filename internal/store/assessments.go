package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AssessmentFilter narrows assessment listings. Nil fields match everything.
type AssessmentFilter struct {
	UserID     *int64
	ExerciseID *int64
}

// Assessments persists exercise assessments.
type Assessments struct {
	db *gorm.DB
}

// NewAssessments constructs the assessment store.
func NewAssessments(database *Database) *Assessments {
	return &Assessments{db: database.db}
}

// List returns assessments matching the filter.
func (assessments *Assessments) List(ctx context.Context, filter AssessmentFilter) ([]Assessment, error) {
	query := assessments.db.WithContext(ctx).Order("id")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ExerciseID != nil {
		query = query.Where("exercise_id = ?", *filter.ExerciseID)
	}
	var records []Assessment
	if listErr := query.Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("assessments.list: %w", listErr)
	}
	return records, nil
}

// Get returns one assessment by id.
func (assessments *Assessments) Get(ctx context.Context, assessmentID int64) (Assessment, error) {
	var record Assessment
	getErr := assessments.db.WithContext(ctx).Take(&record, assessmentID).Error
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return Assessment{}, fmt.Errorf("assessments.get: %w", ErrNotFound)
		}
		return Assessment{}, fmt.Errorf("assessments.get: %w", getErr)
	}
	return record, nil
}

// Create inserts a new assessment.
func (assessments *Assessments) Create(ctx context.Context, userID int64, exerciseID int64, score float64, feedback *string) (Assessment, error) {
	record := Assessment{
		Score:      score,
		Feedback:   feedback,
		UserID:     userID,
		ExerciseID: exerciseID,
	}
	if createErr := assessments.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return Assessment{}, fmt.Errorf("assessments.create: %w", createErr)
	}
	return record, nil
}

// Update replaces the score and feedback.
func (assessments *Assessments) Update(ctx context.Context, assessmentID int64, score float64, feedback *string) (Assessment, error) {
	record, getErr := assessments.Get(ctx, assessmentID)
	if getErr != nil {
		return Assessment{}, getErr
	}
	record.Score = score
	record.Feedback = feedback
	updateErr := assessments.db.WithContext(ctx).Model(&Assessment{ID: assessmentID}).
		Select("score", "feedback").
		Updates(map[string]interface{}{"score": score, "feedback": feedback}).Error
	if updateErr != nil {
		return Assessment{}, fmt.Errorf("assessments.update: %w", updateErr)
	}
	return record, nil
}

// Delete removes an assessment by id.
func (assessments *Assessments) Delete(ctx context.Context, assessmentID int64) error {
	result := assessments.db.WithContext(ctx).Delete(&Assessment{}, assessmentID)
	if result.Error != nil {
		return fmt.Errorf("assessments.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("assessments.delete: %w", ErrNotFound)
	}
	return nil
}
