package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// A single mutex makes every method atomic, matching the row-level
// guarantees of the Postgres implementation.
type InMemoryRepository struct {
	mu            sync.RWMutex
	accounts      map[uuid.UUID]Account
	byEmail       map[string]uuid.UUID
	byFederatedID map[string]uuid.UUID
	now           func() time.Time
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts:      make(map[uuid.UUID]Account),
		byEmail:       make(map[string]uuid.UUID),
		byFederatedID: make(map[string]uuid.UUID),
		now:           time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, params NewAccount) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(params.Email)
	if _, ok := r.byEmail[email]; ok {
		return Account{}, ErrEmailTaken
	}
	if params.FederatedID != "" {
		if _, ok := r.byFederatedID[params.FederatedID]; ok {
			return Account{}, ErrFederatedIDTaken
		}
	}

	now := r.now().UTC()
	a := Account{
		ID:                uuid.New(),
		Email:             email,
		Name:              params.Name,
		PasswordHash:      params.PasswordHash,
		FederatedID:       params.FederatedID,
		Photo:             params.Photo,
		CredentialVersion: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.accounts[a.ID] = a
	r.byEmail[email] = a.ID
	if a.FederatedID != "" {
		r.byFederatedID[a.FederatedID] = a.ID
	}
	return a, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.accounts[id], nil
}

func (r *InMemoryRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.findResetToken(tokenHash, now); ok {
		return a, nil
	}
	return Account{}, ErrResetTokenNotFound
}

func (r *InMemoryRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	a.Name = name
	a.UpdatedAt = r.now().UTC()
	r.accounts[id] = a
	return a, nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	r.setPassword(&a, passwordHash)
	return a, nil
}

func (r *InMemoryRepository) RehashPassword(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.PasswordHash != oldHash {
		return nil
	}
	a.PasswordHash = newHash
	a.UpdatedAt = r.now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *InMemoryRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.ResetTokenHash = tokenHash
	a.ResetTokenExpiry = &expiry
	a.UpdatedAt = r.now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *InMemoryRepository) ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.ResetTokenHash != tokenHash {
		return nil
	}
	a.ResetTokenHash = ""
	a.ResetTokenExpiry = nil
	a.UpdatedAt = r.now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *InMemoryRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.findResetToken(tokenHash, now)
	if !ok {
		return Account{}, ErrResetTokenNotFound
	}
	r.setPassword(&a, passwordHash)
	return a, nil
}

func (r *InMemoryRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, a := range r.accounts {
		if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
			a.ResetTokenHash = ""
			a.ResetTokenExpiry = nil
			r.accounts[id] = a
			purged++
		}
	}
	return purged, nil
}

// findResetToken must be called with the lock held.
func (r *InMemoryRepository) findResetToken(tokenHash string, now time.Time) (Account, bool) {
	if tokenHash == "" {
		return Account{}, false
	}
	for _, a := range r.accounts {
		if a.ResetTokenHash == tokenHash && a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(now) {
			return a, true
		}
	}
	return Account{}, false
}

// setPassword must be called with the write lock held.
func (r *InMemoryRepository) setPassword(a *Account, passwordHash string) {
	a.PasswordHash = passwordHash
	a.CredentialVersion++
	a.ResetTokenHash = ""
	a.ResetTokenExpiry = nil
	a.UpdatedAt = r.now().UTC()
	r.accounts[a.ID] = *a
}
