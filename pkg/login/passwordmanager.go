package login

import (
	"errors"
	"fmt"
)

// ErrUnknownHashFormat is returned when no registered hasher recognizes a stored hash.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// PasswordManager hashes new passwords with the configured hasher and
// verifies stored hashes with whichever registered hasher produced them.
type PasswordManager struct {
	current   PasswordHasher
	hashers   []PasswordHasher
	minLength int
	dummyHash string
}

// NewPasswordManager hashes a throwaway password up front so that lookups
// which find no usable hash can still spend a full verification.
func NewPasswordManager(current PasswordHasher, minLength int) (*PasswordManager, error) {
	if current == nil {
		current = NewBcryptHasher(12)
	}
	if minLength <= 0 {
		minLength = 8
	}

	hashers := []PasswordHasher{current}
	if _, ok := current.(*BcryptHasher); !ok {
		hashers = append(hashers, NewBcryptHasher(12))
	}
	if _, ok := current.(*Argon2Hasher); !ok {
		hashers = append(hashers, NewArgon2Hasher())
	}

	dummy, err := current.Hash("legendboard-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to build dummy hash: %w", err)
	}

	return &PasswordManager{
		current:   current,
		hashers:   hashers,
		minLength: minLength,
		dummyHash: dummy,
	}, nil
}

// MinLength is the shortest accepted password.
func (pm *PasswordManager) MinLength() int {
	return pm.minLength
}

// MaxBytes is the longest password the current hasher accepts, or 0 when
// it has no limit.
func (pm *PasswordManager) MaxBytes() int {
	if l, ok := pm.current.(interface{ MaxPasswordBytes() int }); ok {
		return l.MaxPasswordBytes()
	}
	return 0
}

// HashPassword hashes a password with the current hasher
func (pm *PasswordManager) HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return pm.current.Hash(password)
}

// CheckPasswordHash verifies password against hashedPassword. needsRehash
// is set on a match when the hash should be replaced with the current
// hasher's output.
func (pm *PasswordManager) CheckPasswordHash(password, hashedPassword string) (match bool, needsRehash bool, err error) {
	if password == "" || hashedPassword == "" {
		return false, false, errors.New("password and hashed password cannot be empty")
	}

	for _, h := range pm.hashers {
		if !h.Recognizes(hashedPassword) {
			continue
		}
		match, err = h.Verify(password, hashedPassword)
		if err != nil || !match {
			return false, false, err
		}
		if h != pm.current {
			return true, true, nil
		}
		return true, h.NeedsRehash(hashedPassword), nil
	}
	return false, false, ErrUnknownHashFormat
}

// VerifyDummy spends one verification against the dummy hash. The result
// is always false.
func (pm *PasswordManager) VerifyDummy(password string) {
	if password == "" {
		password = "x"
	}
	_, _ = pm.current.Verify(password, pm.dummyHash)
}
