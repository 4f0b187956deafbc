package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Exercises persists practice exercises.
type Exercises struct {
	db *gorm.DB
}

// NewExercises constructs the exercise store.
func NewExercises(database *Database) *Exercises {
	return &Exercises{db: database.db}
}

// List returns all exercises.
func (exercises *Exercises) List(ctx context.Context) ([]Exercise, error) {
	var records []Exercise
	if listErr := exercises.db.WithContext(ctx).Order("id").Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("exercises.list: %w", listErr)
	}
	return records, nil
}

// Get returns one exercise by id.
func (exercises *Exercises) Get(ctx context.Context, exerciseID int64) (Exercise, error) {
	var record Exercise
	getErr := exercises.db.WithContext(ctx).Take(&record, exerciseID).Error
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return Exercise{}, fmt.Errorf("exercises.get: %w", ErrNotFound)
		}
		return Exercise{}, fmt.Errorf("exercises.get: %w", getErr)
	}
	return record, nil
}

// Create inserts a new exercise.
func (exercises *Exercises) Create(ctx context.Context, title string, description string) (Exercise, error) {
	record := Exercise{
		Title:       title,
		Description: description,
	}
	if createErr := exercises.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return Exercise{}, fmt.Errorf("exercises.create: %w", createErr)
	}
	return record, nil
}

// Update replaces the title and description.
func (exercises *Exercises) Update(ctx context.Context, exerciseID int64, title string, description string) (Exercise, error) {
	record, getErr := exercises.Get(ctx, exerciseID)
	if getErr != nil {
		return Exercise{}, getErr
	}
	record.Title = title
	record.Description = description
	updateErr := exercises.db.WithContext(ctx).Model(&Exercise{ID: exerciseID}).
		Updates(map[string]interface{}{"title": title, "description": description}).Error
	if updateErr != nil {
		return Exercise{}, fmt.Errorf("exercises.update: %w", updateErr)
	}
	return record, nil
}

// Delete removes an exercise by id.
func (exercises *Exercises) Delete(ctx context.Context, exerciseID int64) error {
	result := exercises.db.WithContext(ctx).Delete(&Exercise{}, exerciseID)
	if result.Error != nil {
		return fmt.Errorf("exercises.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("exercises.delete: %w", ErrNotFound)
	}
	return nil
}
