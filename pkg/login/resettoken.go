package login

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/tendant/legendboard/pkg/utils"
)

const resetTokenBytes = 32

// GenerateResetToken returns a one-time reset secret and the hash that is
// stored in its place.
func GenerateResetToken() (token string, tokenHash string, err error) {
	token, err = utils.RandomHex(resetTokenBytes)
	if err != nil {
		return "", "", err
	}
	return token, HashResetToken(token), nil
}

// HashResetToken is the lowercase sha256 hex of token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
