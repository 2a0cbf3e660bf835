package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/audit"
	pkgconfig "github.com/tendant/legendboard/pkg/config"
	"github.com/tendant/legendboard/pkg/externalprovider"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/notification"
	"github.com/tendant/legendboard/pkg/pages"
	"github.com/tendant/legendboard/pkg/profile"
	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/signup"
	"github.com/tendant/legendboard/pkg/tokengenerator"
	"github.com/tendant/legendboard/pkg/utils"
)

// Dependencies are the collaborators NewConfig cannot build from
// configuration alone. Only Repository is required.
type Dependencies struct {
	Repository account.Repository

	// Notifier defaults to an SMTP notification manager built from cfg.Email.
	Notifier login.NotificationSender
	// RateStore defaults to an in-memory store with no sweeper goroutine.
	// Pass a store you Close to get expired windows swept. Ignored when
	// rate limiting is disabled.
	RateStore ratelimit.Store
	// StateRepository defaults to in-memory OAuth state.
	StateRepository externalprovider.StateRepository

	// Registerer and Gatherer default to a fresh registry. /metrics is
	// only served when a Gatherer is available.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewConfig builds every service and handle from cfg.
//
// Example:
//
//	cfg, err := router.NewConfig(appConfig, router.Dependencies{
//		Repository: account.NewPostgresRepository(pool),
//		RateStore:  ratelimit.NewRedisStore(rdb),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	router.SetupRoutes(r, cfg)
func NewConfig(cfg pkgconfig.Config, deps Dependencies) (Config, error) {
	if deps.Repository == nil {
		return Config{}, fmt.Errorf("repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.Registerer == nil {
		reg := prometheus.NewRegistry()
		deps.Registerer, deps.Gatherer = reg, reg
	}
	recorder, err := audit.NewLogRecorder(logger, deps.Registerer)
	if err != nil {
		return Config{}, fmt.Errorf("failed to create audit recorder: %w", err)
	}

	hasher, err := login.NewPasswordHasher(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return Config{}, err
	}
	passwords, err := login.NewPasswordManager(hasher, cfg.Password.MinLength)
	if err != nil {
		return Config{}, fmt.Errorf("failed to create password manager: %w", err)
	}

	sessionExpiry, err := cfg.JWT.ParseSessionExpiry()
	if err != nil {
		return Config{}, fmt.Errorf("invalid session expiry: %w", err)
	}
	tokens, err := tokengenerator.NewJwtTokenGenerator(cfg.JWT.Secret, sessionExpiry, tokengenerator.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		return Config{}, fmt.Errorf("failed to create token generator: %w", err)
	}
	cookies := tokengenerator.NewCookieSetter(cfg.JWT.SecureCookie(cfg.App.Environment()), cfg.JWT.CookieSameSite())

	notifier := deps.Notifier
	if notifier == nil {
		nm, err := notification.NewNotificationManagerWithOptions(
			notification.WithSMTP(cfg.Email.ToSMTPConfig()),
			notification.WithPasswordResetTemplate(),
		)
		if err != nil {
			return Config{}, fmt.Errorf("failed to create notification manager: %w", err)
		}
		notifier = nm
	}

	resetExpiry, err := pkgconfig.ParseDuration(cfg.Password.ResetTokenExpiry)
	if err != nil {
		return Config{}, fmt.Errorf("invalid reset token expiry: %w", err)
	}
	loginService := login.NewLoginService(deps.Repository, passwords, tokens,
		login.WithNotifier(notifier),
		login.WithRecorder(recorder),
		login.WithResetTokenExpiry(resetExpiry),
		login.WithResetLinkBase(cfg.App.BaseURL+cfg.App.Prefix+"/resetPassword"),
	)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		policies, err := cfg.RateLimit.ToPolicies()
		if err != nil {
			return Config{}, err
		}
		store := deps.RateStore
		if store == nil {
			store = ratelimit.NewMemoryStore(0)
		}
		limiter = ratelimit.NewLimiter(store, policies, ratelimit.WithRecorder(recorder), ratelimit.WithLogger(logger))
	}

	renderer, err := pages.New(pages.WithGoogle(cfg.Google.Enabled()))
	if err != nil {
		return Config{}, err
	}

	auth := login.NewAuthMiddleware(loginService, cfg.App.Prefix+"/sign_in", recorder)

	proxies, err := utils.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		return Config{}, err
	}

	routes := Config{
		Prefix:         cfg.App.Prefix,
		TrustedProxies: proxies,
		LoginHandle: login.NewHandle(loginService, cookies, auth, cfg.App.Prefix,
			login.WithPages(renderer),
			login.WithLimiter(limiter),
			login.WithHandleRecorder(recorder),
		),
		SignupHandle: signup.NewHandle(
			signup.WithLoginService(loginService),
			signup.WithCookieSetter(cookies),
			signup.WithPages(renderer),
			signup.WithLimiter(limiter),
			signup.WithPrefix(cfg.App.Prefix),
		),
		ProfileHandle: profile.NewHandle(profile.NewProfileService(loginService), auth, cookies, renderer, cfg.App.Prefix),
		LoginService:  loginService,
	}
	if deps.Gatherer != nil {
		routes.MetricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}

	if cfg.Google.Enabled() {
		stateExpiry, err := pkgconfig.ParseDuration(cfg.Google.StateExpiry)
		if err != nil {
			return Config{}, fmt.Errorf("invalid state expiry: %w", err)
		}
		provider := externalprovider.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
		if err := provider.ValidateConfig(); err != nil {
			return Config{}, fmt.Errorf("invalid google provider: %w", err)
		}
		states := deps.StateRepository
		if states == nil {
			states = externalprovider.NewInMemoryStateRepository()
		}
		opts := []externalprovider.Option{
			externalprovider.WithStateExpiration(stateExpiry),
			externalprovider.WithRecorder(recorder),
		}
		if deps.HTTPClient != nil {
			opts = append(opts, externalprovider.WithHTTPClient(deps.HTTPClient))
		}
		svc := externalprovider.NewExternalProviderService(provider, states, loginService, opts...)
		h := externalprovider.NewHandle(svc, cookies, renderer, limiter, cfg.App.Prefix)
		routes.ExternalProviderHandle = &h
		slog.Info("Google login enabled", "callback", cfg.Google.CallbackURL)
	}

	return routes, nil
}
