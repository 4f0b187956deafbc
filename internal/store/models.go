package store

import "time"

// ActivityStatus tracks a user's state within one activity. Any status may
// overwrite any other; no transition graph is enforced.
type ActivityStatus string

const (
	StatusNotStarted ActivityStatus = "not_started"
	StatusInProgress ActivityStatus = "in_progress"
	StatusPaused     ActivityStatus = "paused"
	StatusCompleted  ActivityStatus = "completed"
)

// Valid reports whether the value is one of the known statuses.
func (status ActivityStatus) Valid() bool {
	switch status {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}

// User is an application user, created lazily on first authenticated request.
// The subject column carries the external identity and is immutable once set.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	Subject   string    `gorm:"column:auth0_sub;uniqueIndex;not null" json:"auth0_sub"`
	Email     *string   `gorm:"column:email;index" json:"email"`
	Name      *string   `gorm:"column:name" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Activity is the template describing what an activity is.
type Activity struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	ExternalID string    `gorm:"column:activity_id;index;not null" json:"activity_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	CourseCode string    `gorm:"column:course_code;index;not null" json:"course_code"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}

// ActivityProgress tracks one user's stateful progress through one activity.
// The composite unique index guarantees at most one row per (user, activity).
type ActivityProgress struct {
	ID               int64          `gorm:"column:id;primaryKey" json:"id"`
	UserID           int64          `gorm:"column:user_id;not null;uniqueIndex:idx_progress_user_activity" json:"user_id"`
	ActivityID       int64          `gorm:"column:activity_id;not null;uniqueIndex:idx_progress_user_activity" json:"activity_id"`
	Status           ActivityStatus `gorm:"column:status;not null;default:not_started" json:"status"`
	CorrectQuestions int            `gorm:"column:correct_questions;not null;default:0" json:"correct_questions"`
	TotalQuestions   int            `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	MasteredUnits    int            `gorm:"column:mastered_units;not null;default:0" json:"mastered_units"`
	XPEarned         *int           `gorm:"column:xp_earned" json:"xp_earned"`
	ElapsedMS        int64          `gorm:"column:elapsed_ms;not null;default:0" json:"elapsed_ms"`
	StartedAt        *time.Time     `gorm:"column:started_at" json:"started_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at"`
}

func (ActivityProgress) TableName() string {
	return "activity_progress"
}

// Exercise is a standalone practice item that assessments refer to.
type Exercise struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// Assessment scores one user's attempt at one exercise.
type Assessment struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	Score      float64   `gorm:"column:score;not null" json:"score"`
	Feedback   *string   `gorm:"column:feedback" json:"feedback"`
	UserID     int64     `gorm:"column:user_id;index;not null" json:"user_id"`
	ExerciseID int64     `gorm:"column:exercise_id;index;not null" json:"exercise_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Assessment) TableName() string {
	return "assessments"
}
