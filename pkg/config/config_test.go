package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/legendboard/pkg/ratelimit"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("APP_PREFIX", "users/")
	t.Setenv("APP_BASE_URL", "https://legends.example.com/")
	t.Setenv("RATELIMIT_FORGOT_PASSWORD_MAX", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/users", cfg.App.Prefix)
	assert.Equal(t, "https://legends.example.com", cfg.App.BaseURL)
	assert.Equal(t, "bcrypt", cfg.Password.Hasher)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, 7, cfg.RateLimit.ForgotPasswordMax)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Google.Enabled())

	expiry, err := cfg.JWT.ParseSessionExpiry()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, expiry)
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  env: production
jwt:
  secret: yaml-secret-0123456789
password:
  hasher: argon2id
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Production, cfg.App.Environment())
	assert.Equal(t, "argon2id", cfg.Password.Hasher)
	assert.True(t, cfg.JWT.SecureCookie(cfg.App.Environment()))
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			JWT:      JWTConfig{Secret: "0123456789abcdef", SessionExpiry: "P7D"},
			Password: PasswordConfig{Hasher: "bcrypt", ResetTokenExpiry: "PT1H"},
			RateLimit: RateLimitConfig{
				LoginMax: 5, LoginWindow: "PT15M",
				RegisterMax: 5, RegisterWindow: "1h",
				ForgotPasswordMax: 3, ForgotPasswordWindow: "PT1H",
				FederatedMax: 10, FederatedWindow: "PT15M",
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = "short"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("unknown hasher and bad window", func(t *testing.T) {
		cfg := base()
		cfg.Password.Hasher = "md5"
		cfg.RateLimit.LoginWindow = "soon"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PASSWORD_HASHER")
		assert.Contains(t, err.Error(), "RATELIMIT_LOGIN_WINDOW")
	})

	t.Run("trusted proxies", func(t *testing.T) {
		cfg := base()
		cfg.App.TrustedProxies = "10.0.0.0/8, 127.0.0.1"
		assert.NoError(t, cfg.Validate())

		cfg.App.TrustedProxies = "10.0.0.0/99"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
	})

	t.Run("google needs callback", func(t *testing.T) {
		cfg := base()
		cfg.Google = GoogleConfig{ClientID: "id", ClientSecret: "secret", StateExpiry: "PT10M"}
		assert.Error(t, cfg.Validate())
	})
}

func TestRateLimitPolicies(t *testing.T) {
	cfg := RateLimitConfig{
		LoginMax: 5, LoginWindow: "PT15M",
		RegisterMax: 5, RegisterWindow: "PT1H",
		ForgotPasswordMax: 3, ForgotPasswordWindow: "PT1H",
		FederatedMax: 10, FederatedWindow: "15m",
	}

	policies, err := cfg.ToPolicies()
	require.NoError(t, err)

	login := policies[ratelimit.ClassLogin]
	assert.True(t, login.FailuresOnly)
	assert.Equal(t, 15*time.Minute, login.Window)

	forgot := policies[ratelimit.ClassForgotPassword]
	assert.False(t, forgot.FailuresOnly)
	assert.Equal(t, 3, forgot.Max)
	assert.Equal(t, time.Hour, forgot.Window)

	assert.Equal(t, 15*time.Minute, policies[ratelimit.ClassFederated].Window)
}

func TestSecureCookieOverride(t *testing.T) {
	j := JWTConfig{}
	assert.False(t, j.SecureCookie(Development))
	assert.True(t, j.SecureCookie(Production))

	j.CookieSecure = "false"
	assert.False(t, j.SecureCookie(Production))
	j.CookieSecure = "true"
	assert.True(t, j.SecureCookie(Development))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("PT1H")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	d, err = ParseDuration("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("nonsense")
	assert.Error(t, err)
}
