package authkit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Account is the provisioned application user handed to request handlers.
type Account struct {
	ID      int64
	Subject string
	Email   string
	Name    string
}

// UserAccounts persists and retrieves application users by subject.
type UserAccounts interface {
	// FindBySubject returns the account for the subject, or ErrAccountNotFound.
	FindBySubject(ctx context.Context, subject string) (Account, error)
	// Insert creates a new account, or returns ErrDuplicateSubject when a
	// concurrent request already inserted the same subject.
	Insert(ctx context.Context, subject string, email string, name string) (Account, error)
}

// Provisioner resolves a verified subject to a stored account, creating the
// account lazily on first login. Safe under concurrent first logins: the
// storage uniqueness constraint arbitrates the race and the loser requeries.
type Provisioner struct {
	accounts UserAccounts
	profiles ProfileFetcher
	logger   *zap.Logger
}

// NewProvisioner constructs a Provisioner. The profile fetcher may be nil, in
// which case new accounts are created without email or name.
func NewProvisioner(accounts UserAccounts, profiles ProfileFetcher, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		accounts: accounts,
		profiles: profiles,
		logger:   logger,
	}
}

// ResolveUser finds the account for the subject or atomically creates it.
// Exactly one account ever exists per subject.
func (provisioner *Provisioner) ResolveUser(ctx context.Context, subject string, rawToken string) (Account, error) {
	existing, findErr := provisioner.accounts.FindBySubject(ctx, subject)
	if findErr == nil {
		return existing, nil
	}
	if !errors.Is(findErr, ErrAccountNotFound) {
		return Account{}, fmt.Errorf("auth.provision.find: %w", findErr)
	}

	profile := UserProfile{}
	if provisioner.profiles != nil {
		profile = provisioner.profiles.Fetch(ctx, rawToken)
	}

	created, insertErr := provisioner.accounts.Insert(ctx, subject, profile.Email, profile.DisplayName())
	if insertErr == nil {
		provisioner.logger.Info("provisioned new user",
			zap.String("code", "auth.provision.created"),
			zap.String("subject", subject),
			zap.Int64("user_id", created.ID))
		return created, nil
	}
	if !errors.Is(insertErr, ErrDuplicateSubject) {
		return Account{}, fmt.Errorf("auth.provision.insert: %w", insertErr)
	}

	// A concurrent first login won the insert race; their row is ours too.
	winner, requeryErr := provisioner.accounts.FindBySubject(ctx, subject)
	if requeryErr == nil {
		return winner, nil
	}
	if errors.Is(requeryErr, ErrAccountNotFound) {
		return Account{}, fmt.Errorf("auth.provision.requery: %w", ErrProvisioningFault)
	}
	return Account{}, fmt.Errorf("auth.provision.requery: %w", requeryErr)
}
