package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Activities persists activity templates.
type Activities struct {
	db *gorm.DB
}

// NewActivities constructs the activity store.
func NewActivities(database *Database) *Activities {
	return &Activities{db: database.db}
}

// List returns all activity templates.
func (activities *Activities) List(ctx context.Context) ([]Activity, error) {
	var records []Activity
	if listErr := activities.db.WithContext(ctx).Order("id").Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("activities.list: %w", listErr)
	}
	return records, nil
}

// Get returns one activity by internal id.
func (activities *Activities) Get(ctx context.Context, activityID int64) (Activity, error) {
	var record Activity
	getErr := activities.db.WithContext(ctx).Take(&record, activityID).Error
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return Activity{}, fmt.Errorf("activities.get: %w", ErrNotFound)
		}
		return Activity{}, fmt.Errorf("activities.get: %w", getErr)
	}
	return record, nil
}

// Create inserts a new activity template.
func (activities *Activities) Create(ctx context.Context, externalID string, name string, courseCode string) (Activity, error) {
	record := Activity{
		ExternalID: externalID,
		Name:       name,
		CourseCode: courseCode,
	}
	if createErr := activities.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return Activity{}, fmt.Errorf("activities.create: %w", createErr)
	}
	return record, nil
}
