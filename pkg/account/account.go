// Package account persists player accounts: identity, password hash,
// federated id and the outstanding password-reset token.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrFederatedIDTaken   = errors.New("federated id already linked")
	ErrResetTokenNotFound = errors.New("reset token not found or expired")
)

// Account is the stored identity record. PasswordHash and the reset
// fields never leave the auth core.
type Account struct {
	ID                uuid.UUID
	Email             string
	Name              string
	PasswordHash      string
	FederatedID       string
	Photo             string
	ResetTokenHash    string
	ResetTokenExpiry  *time.Time
	CredentialVersion int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// IsFederatedOnly reports whether the account was created through a
// federated provider and has never set a password.
func (a Account) IsFederatedOnly() bool {
	return a.FederatedID != "" && a.PasswordHash == ""
}

// NewAccount holds the fields supplied at creation.
type NewAccount struct {
	Email        string
	Name         string
	PasswordHash string
	FederatedID  string
	Photo        string
}

// Repository is the credential store. Uniqueness of email (case-insensitive)
// and federated id is enforced by the implementation, not by callers.
type Repository interface {
	Create(ctx context.Context, params NewAccount) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	// GetByResetTokenHash returns the account holding tokenHash with an expiry after now.
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (Account, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (Account, error)
	// UpdatePassword replaces the hash, bumps the credential version and
	// clears any outstanding reset token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (Account, error)
	// RehashPassword swaps oldHash for newHash without touching the
	// credential version. It is a no-op if the stored hash changed meanwhile.
	RehashPassword(ctx context.Context, id uuid.UUID, oldHash, newHash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error
	// ClearResetToken clears the reset fields only if they still hold tokenHash.
	ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error
	// ConsumeResetToken atomically matches an unexpired tokenHash, sets the
	// new password, bumps the credential version and clears the reset fields.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (Account, error)
	// PurgeExpiredResetTokens clears reset fields whose expiry is not after now.
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
