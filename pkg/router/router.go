package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/legendboard/pkg/audit"
	"github.com/tendant/legendboard/pkg/externalprovider"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/profile"
	"github.com/tendant/legendboard/pkg/signup"
	"github.com/tendant/legendboard/pkg/utils"
)

// Config holds all the dependencies and handlers needed to setup routes
type Config struct {
	// Prefix is the mount path of every account route, e.g. "/users".
	Prefix string

	// TrustedProxies may rewrite the client address. Empty trusts nobody.
	TrustedProxies utils.TrustedProxies

	LoginHandle   login.Handle
	SignupHandle  *signup.Handle
	ProfileHandle profile.Handle

	// Optional: nil when Google login is not configured
	ExternalProviderHandle *externalprovider.Handle

	// Optional: serves /metrics when set
	MetricsHandler http.Handler

	// LoginService is exposed for background jobs such as the reset token janitor.
	LoginService *login.LoginService
}

// SetupRoutes mounts the account routes under cfg.Prefix.
func SetupRoutes(router chi.Router, cfg Config) {
	if cfg.MetricsHandler != nil {
		router.Handle("/metrics", cfg.MetricsHandler)
	}

	router.With(utils.RealIP(cfg.TrustedProxies), audit.Middleware).Route(cfg.Prefix, func(r chi.Router) {
		cfg.LoginHandle.Routes(r)
		if cfg.SignupHandle != nil {
			cfg.SignupHandle.Routes(r)
		}
		cfg.ProfileHandle.Routes(r)
		if cfg.ExternalProviderHandle != nil {
			cfg.ExternalProviderHandle.Routes(r)
		}
	})
}
