package login

import (
	"fmt"
	"strings"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// PasswordHasher defines the interface for password hashing implementations
type PasswordHasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)

	// Recognizes reports whether hashedPassword was produced by this algorithm
	Recognizes(hashedPassword string) bool

	// NeedsRehash reports whether hashedPassword uses weaker parameters
	// than the hasher is configured with
	NeedsRehash(hashedPassword string) bool
}

// NewPasswordHasher returns the hasher named by PASSWORD_HASHER.
func NewPasswordHasher(name string, bcryptCost int) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HasherBcrypt:
		return NewBcryptHasher(bcryptCost), nil
	case HasherArgon2id:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported password hasher: %q", name)
	}
}
