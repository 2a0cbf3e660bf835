package config

import (
	"net/http"
	"time"
)

// JWTConfig holds session assertion and cookie settings.
type JWTConfig struct {
	Secret        string `env:"JWT_SECRET" env-required:"true" yaml:"secret"`
	Issuer        string `env:"JWT_ISSUER" env-default:"legendboard" yaml:"issuer"`
	SessionExpiry string `env:"SESSION_EXPIRY" env-default:"P7D" yaml:"session_expiry"`
	// CookieSecure overrides the environment-derived Secure flag when set ("true"/"false").
	CookieSecure string `env:"COOKIE_SECURE" yaml:"cookie_secure"`
}

// ParseSessionExpiry parses the session assertion TTL
func (j JWTConfig) ParseSessionExpiry() (time.Duration, error) {
	return ParseDuration(j.SessionExpiry)
}

// SecureCookie reports whether the session cookie must be Secure in env.
func (j JWTConfig) SecureCookie(env Environment) bool {
	switch j.CookieSecure {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return env.IsProduction()
}

// CookieSameSite returns the SameSite mode for the session cookie
func (j JWTConfig) CookieSameSite() http.SameSite {
	return http.SameSiteLaxMode
}

func (j JWTConfig) validators() []Validator {
	return []Validator{
		func() ValidationErrors {
			if len(j.Secret) < 16 {
				return ValidationErrors{{Field: "JWT_SECRET", Message: "must be at least 16 characters"}}
			}
			return nil
		},
		durationValidator("SESSION_EXPIRY", j.SessionExpiry),
	}
}
