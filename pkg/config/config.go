package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/legendboard/pkg/utils"
)

// AppConfig holds deployment-level settings.
type AppConfig struct {
	Env     string `env:"APP_ENV" env-default:"development" yaml:"env"`
	BaseURL string `env:"APP_BASE_URL" env-default:"http://localhost:3000" yaml:"base_url"`
	// Prefix is the mount path of the account routes.
	Prefix string `env:"APP_PREFIX" env-default:"/users" yaml:"prefix"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed.
	TrustedProxies string `env:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// Environment returns the parsed APP_ENV value
func (a AppConfig) Environment() Environment {
	return ParseEnvironment(a.Env)
}

// RedisConfig selects Redis-backed rate-limit and OAuth state stores when URL is set.
type RedisConfig struct {
	URL string `env:"REDIS_URL" yaml:"url"`
}

// Enabled reports whether a Redis URL was configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// GoogleConfig holds Google OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID" yaml:"client_id"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET" yaml:"client_secret"`
	CallbackURL  string `env:"GOOGLE_CALLBACK_URL" yaml:"callback_url"`
	StateExpiry  string `env:"GOOGLE_STATE_EXPIRY" env-default:"PT10M" yaml:"state_expiry"`
}

// Enabled reports whether federated login should be mounted
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// PasswordConfig holds hashing and reset-token settings.
type PasswordConfig struct {
	Hasher           string `env:"PASSWORD_HASHER" env-default:"bcrypt" yaml:"hasher"`
	BcryptCost       int    `env:"BCRYPT_COST" env-default:"12" yaml:"bcrypt_cost"`
	MinLength        int    `env:"PASSWORD_MIN_LENGTH" env-default:"8" yaml:"min_length"`
	ResetTokenExpiry string `env:"RESET_TOKEN_EXPIRY" env-default:"PT1H" yaml:"reset_token_expiry"`
}

func (p PasswordConfig) validators() []Validator {
	return []Validator{
		func() ValidationErrors {
			switch p.Hasher {
			case "bcrypt", "argon2id":
				return nil
			}
			return ValidationErrors{{Field: "PASSWORD_HASHER", Message: fmt.Sprintf("unsupported hasher %q", p.Hasher)}}
		},
		durationValidator("RESET_TOKEN_EXPIRY", p.ResetTokenExpiry),
	}
}

// Config is the full service configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	JWT       JWTConfig       `yaml:"jwt"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Google    GoogleConfig    `yaml:"google"`
	Password  PasswordConfig  `yaml:"password"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from the YAML file at path, overlaid by the
// environment. An empty path reads the environment only.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.App.Prefix = "/" + strings.Trim(cfg.App.Prefix, "/")
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cleanenv cannot.
func (c Config) Validate() error {
	var validators []Validator
	validators = append(validators, c.JWT.validators()...)
	validators = append(validators, c.Password.validators()...)
	validators = append(validators, c.RateLimit.validators()...)
	validators = append(validators, func() ValidationErrors {
		if _, err := utils.ParseTrustedProxies(c.App.TrustedProxies); err != nil {
			return ValidationErrors{{Field: "TRUSTED_PROXIES", Message: err.Error()}}
		}
		return nil
	})
	if c.Google.Enabled() {
		validators = append(validators,
			durationValidator("GOOGLE_STATE_EXPIRY", c.Google.StateExpiry),
			func() ValidationErrors {
				if c.Google.CallbackURL == "" {
					return ValidationErrors{{Field: "GOOGLE_CALLBACK_URL", Message: "required when Google login is enabled"}}
				}
				return nil
			})
	}
	return Validate(validators...)
}
