package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "store_test.db")
	database, openErr := Open(context.Background(), "sqlite://"+databasePath)
	if openErr != nil {
		t.Fatalf("open test database: %v", openErr)
	}
	return database
}

type stepClock struct {
	current time.Time
}

func (clock *stepClock) Now() time.Time {
	return clock.current
}

func (clock *stepClock) Advance(delta time.Duration) {
	clock.current = clock.current.Add(delta)
}

func newStepClock() *stepClock {
	return &stepClock{current: time.Unix(1700000000, 0).UTC()}
}
