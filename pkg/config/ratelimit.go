package config

import (
	"github.com/tendant/legendboard/pkg/ratelimit"
)

// RateLimitConfig contains per-class fixed-window limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATELIMIT_ENABLED" env-default:"true" yaml:"enabled"`

	// Login counts failed attempts only
	LoginMax    int    `env:"RATELIMIT_LOGIN_MAX" env-default:"5" yaml:"login_max"`
	LoginWindow string `env:"RATELIMIT_LOGIN_WINDOW" env-default:"PT15M" yaml:"login_window"`

	RegisterMax    int    `env:"RATELIMIT_REGISTER_MAX" env-default:"5" yaml:"register_max"`
	RegisterWindow string `env:"RATELIMIT_REGISTER_WINDOW" env-default:"PT1H" yaml:"register_window"`

	ForgotPasswordMax    int    `env:"RATELIMIT_FORGOT_PASSWORD_MAX" env-default:"3" yaml:"forgot_password_max"`
	ForgotPasswordWindow string `env:"RATELIMIT_FORGOT_PASSWORD_WINDOW" env-default:"PT1H" yaml:"forgot_password_window"`

	FederatedMax    int    `env:"RATELIMIT_FEDERATED_MAX" env-default:"10" yaml:"federated_max"`
	FederatedWindow string `env:"RATELIMIT_FEDERATED_WINDOW" env-default:"PT15M" yaml:"federated_window"`
}

// ToPolicies converts the configuration to limiter policies keyed by class.
func (c RateLimitConfig) ToPolicies() (map[ratelimit.Class]ratelimit.Policy, error) {
	type entry struct {
		class        ratelimit.Class
		max          int
		window       string
		failuresOnly bool
	}
	entries := []entry{
		{ratelimit.ClassLogin, c.LoginMax, c.LoginWindow, true},
		{ratelimit.ClassRegister, c.RegisterMax, c.RegisterWindow, false},
		{ratelimit.ClassForgotPassword, c.ForgotPasswordMax, c.ForgotPasswordWindow, false},
		{ratelimit.ClassFederated, c.FederatedMax, c.FederatedWindow, false},
	}

	policies := make(map[ratelimit.Class]ratelimit.Policy, len(entries))
	for _, e := range entries {
		window, err := ParseDuration(e.window)
		if err != nil {
			return nil, &ValidationError{Field: string(e.class) + " window", Message: err.Error()}
		}
		policies[e.class] = ratelimit.Policy{Max: e.max, Window: window, FailuresOnly: e.failuresOnly}
	}
	return policies, nil
}

func (c RateLimitConfig) validators() []Validator {
	return []Validator{
		durationValidator("RATELIMIT_LOGIN_WINDOW", c.LoginWindow),
		durationValidator("RATELIMIT_REGISTER_WINDOW", c.RegisterWindow),
		durationValidator("RATELIMIT_FORGOT_PASSWORD_WINDOW", c.ForgotPasswordWindow),
		durationValidator("RATELIMIT_FEDERATED_WINDOW", c.FederatedWindow),
		func() ValidationErrors {
			var errs ValidationErrors
			for name, max := range map[string]int{
				"RATELIMIT_LOGIN_MAX":           c.LoginMax,
				"RATELIMIT_REGISTER_MAX":        c.RegisterMax,
				"RATELIMIT_FORGOT_PASSWORD_MAX": c.ForgotPasswordMax,
				"RATELIMIT_FEDERATED_MAX":       c.FederatedMax,
			} {
				if max < 1 {
					errs = append(errs, ValidationError{Field: name, Message: "must be at least 1"})
				}
			}
			return errs
		},
	}
}
