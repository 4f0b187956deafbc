package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tyemirov/bunledge/internal/authkit"
)

func TestUsersInsertAndFindBySubject(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	inserted, insertErr := users.Insert(context.Background(), "auth0|abc", "learner@example.com", "Learner")
	if insertErr != nil {
		t.Fatalf("insert failed: %v", insertErr)
	}
	if inserted.ID == 0 {
		t.Fatalf("expected assigned id, got %+v", inserted)
	}

	found, findErr := users.FindBySubject(context.Background(), "auth0|abc")
	if findErr != nil {
		t.Fatalf("find failed: %v", findErr)
	}
	if found.ID != inserted.ID || found.Email != "learner@example.com" || found.Name != "Learner" {
		t.Fatalf("unexpected account: %+v", found)
	}
}

func TestUsersFindBySubjectNotFound(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	_, findErr := users.FindBySubject(context.Background(), "auth0|ghost")
	if !errors.Is(findErr, authkit.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", findErr)
	}
}

func TestUsersInsertDuplicateSubject(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	if _, insertErr := users.Insert(context.Background(), "auth0|abc", "", ""); insertErr != nil {
		t.Fatalf("first insert failed: %v", insertErr)
	}
	_, duplicateErr := users.Insert(context.Background(), "auth0|abc", "second@example.com", "Second")
	if !errors.Is(duplicateErr, authkit.ErrDuplicateSubject) {
		t.Fatalf("expected ErrDuplicateSubject, got %v", duplicateErr)
	}
}

func TestUsersInsertWithoutProfileStoresNulls(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	inserted, insertErr := users.Insert(context.Background(), "auth0|bare", "", "")
	if insertErr != nil {
		t.Fatalf("insert failed: %v", insertErr)
	}

	record, getErr := users.Get(context.Background(), inserted.ID)
	if getErr != nil {
		t.Fatalf("get failed: %v", getErr)
	}
	if record.Email != nil || record.Name != nil {
		t.Fatalf("expected null attributes, got %+v", record)
	}
}

func TestUsersAdminCRUD(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	email := "admin-created@example.com"
	name := "Admin Created"
	created, createErr := users.Create(context.Background(), "auth0|admin", &email, &name)
	if createErr != nil {
		t.Fatalf("create failed: %v", createErr)
	}

	listed, listErr := users.List(context.Background())
	if listErr != nil {
		t.Fatalf("list failed: %v", listErr)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}

	newName := "Renamed"
	updated, updateErr := users.Update(context.Background(), created.ID, nil, &newName)
	if updateErr != nil {
		t.Fatalf("update failed: %v", updateErr)
	}
	if updated.Email != nil {
		t.Fatalf("expected email cleared, got %+v", updated)
	}
	reloaded, getErr := users.Get(context.Background(), created.ID)
	if getErr != nil {
		t.Fatalf("get after update failed: %v", getErr)
	}
	if reloaded.Email != nil || reloaded.Name == nil || *reloaded.Name != "Renamed" {
		t.Fatalf("update not persisted: %+v", reloaded)
	}
	if reloaded.Subject != "auth0|admin" {
		t.Fatalf("subject must stay immutable, got %q", reloaded.Subject)
	}

	if deleteErr := users.Delete(context.Background(), created.ID); deleteErr != nil {
		t.Fatalf("delete failed: %v", deleteErr)
	}
	if _, getErr := users.Get(context.Background(), created.ID); !errors.Is(getErr, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", getErr)
	}
}

func TestUsersCreateDuplicateIsConflict(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	if _, createErr := users.Create(context.Background(), "auth0|dup", nil, nil); createErr != nil {
		t.Fatalf("first create failed: %v", createErr)
	}
	_, duplicateErr := users.Create(context.Background(), "auth0|dup", nil, nil)
	if !errors.Is(duplicateErr, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", duplicateErr)
	}
}

func TestUsersDeleteMissing(t *testing.T) {
	t.Parallel()

	users := NewUsers(openTestDatabase(t))

	if deleteErr := users.Delete(context.Background(), 404); !errors.Is(deleteErr, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", deleteErr)
	}
}
