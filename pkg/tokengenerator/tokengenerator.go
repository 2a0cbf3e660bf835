// Package tokengenerator mints and verifies signed session assertions.
package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenInvalid = errors.New("session token invalid")
)

// Claims binds a session assertion to an account and the credential
// version that was current when it was minted.
type Claims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// TokenGenerator mints and verifies session assertions.
type TokenGenerator interface {
	GenerateToken(subject string, version int) (string, time.Time, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// JwtTokenGenerator implements TokenGenerator with HS256 and a shared secret.
type JwtTokenGenerator struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// Option configures a JwtTokenGenerator
type Option func(*JwtTokenGenerator)

// WithIssuer sets the iss claim
func WithIssuer(issuer string) Option {
	return func(g *JwtTokenGenerator) {
		g.issuer = issuer
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *JwtTokenGenerator) {
		g.now = now
	}
}

// NewJwtTokenGenerator creates a generator whose assertions live for expiry.
func NewJwtTokenGenerator(secret string, expiry time.Duration, opts ...Option) (*JwtTokenGenerator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("invalid session expiry: %s", expiry)
	}
	g := &JwtTokenGenerator{
		secret: []byte(secret),
		issuer: "legendboard",
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Expiry returns the configured assertion lifetime
func (g *JwtTokenGenerator) Expiry() time.Duration {
	return g.expiry
}

// GenerateToken creates a new token with the given subject and credential version
func (g *JwtTokenGenerator) GenerateToken(subject string, version int) (string, time.Time, error) {
	now := g.now().UTC()
	claims := Claims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    g.issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(g.secret)
	if err != nil {
		slog.Error("Failed to sign session token", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken verifies signature, algorithm, issuer and expiry and returns
// the claims. Failures are ErrTokenExpired or ErrTokenInvalid.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
