package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tyemirov/bunledge/internal/authkit"
)

// Users persists application users. It backs both the admin CRUD surface and
// the authkit provisioning flow.
type Users struct {
	db *gorm.DB
}

// NewUsers constructs the user store.
func NewUsers(database *Database) *Users {
	return &Users{db: database.db}
}

// FindBySubject implements authkit.UserAccounts.
func (users *Users) FindBySubject(ctx context.Context, subject string) (authkit.Account, error) {
	var record User
	findErr := users.db.WithContext(ctx).Where("auth0_sub = ?", subject).Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authkit.Account{}, fmt.Errorf("users.find_by_subject: %w", authkit.ErrAccountNotFound)
		}
		return authkit.Account{}, fmt.Errorf("users.find_by_subject: %w", findErr)
	}
	return record.account(), nil
}

// Insert implements authkit.UserAccounts. A uniqueness violation on the
// subject column surfaces as authkit.ErrDuplicateSubject.
func (users *Users) Insert(ctx context.Context, subject string, email string, name string) (authkit.Account, error) {
	record := User{
		Subject: subject,
		Email:   optionalString(email),
		Name:    optionalString(name),
	}
	if createErr := users.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return authkit.Account{}, fmt.Errorf("users.insert: %w", authkit.ErrDuplicateSubject)
		}
		return authkit.Account{}, fmt.Errorf("users.insert: %w", createErr)
	}
	return record.account(), nil
}

// List returns all users.
func (users *Users) List(ctx context.Context) ([]User, error) {
	var records []User
	if listErr := users.db.WithContext(ctx).Order("id").Find(&records).Error; listErr != nil {
		return nil, fmt.Errorf("users.list: %w", listErr)
	}
	return records, nil
}

// Get returns one user by internal id.
func (users *Users) Get(ctx context.Context, userID int64) (User, error) {
	var record User
	getErr := users.db.WithContext(ctx).Take(&record, userID).Error
	if getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			return User{}, fmt.Errorf("users.get: %w", ErrNotFound)
		}
		return User{}, fmt.Errorf("users.get: %w", getErr)
	}
	return record, nil
}

// Create inserts a user through the administrative surface.
func (users *Users) Create(ctx context.Context, subject string, email *string, name *string) (User, error) {
	record := User{
		Subject: subject,
		Email:   email,
		Name:    name,
	}
	if createErr := users.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return User{}, fmt.Errorf("users.create: %w", ErrConflict)
		}
		return User{}, fmt.Errorf("users.create: %w", createErr)
	}
	return record, nil
}

// Update replaces the mutable profile attributes. The subject is immutable.
func (users *Users) Update(ctx context.Context, userID int64, email *string, name *string) (User, error) {
	record, getErr := users.Get(ctx, userID)
	if getErr != nil {
		return User{}, getErr
	}
	record.Email = email
	record.Name = name
	updateErr := users.db.WithContext(ctx).Model(&User{ID: userID}).
		Select("email", "name").
		Updates(map[string]interface{}{"email": email, "name": name}).Error
	if updateErr != nil {
		return User{}, fmt.Errorf("users.update: %w", updateErr)
	}
	return record, nil
}

// Delete removes a user by internal id.
func (users *Users) Delete(ctx context.Context, userID int64) error {
	result := users.db.WithContext(ctx).Delete(&User{}, userID)
	if result.Error != nil {
		return fmt.Errorf("users.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("users.delete: %w", ErrNotFound)
	}
	return nil
}

func (record User) account() authkit.Account {
	account := authkit.Account{
		ID:      record.ID,
		Subject: record.Subject,
	}
	if record.Email != nil {
		account.Email = *record.Email
	}
	if record.Name != nil {
		account.Name = *record.Name
	}
	return account
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
