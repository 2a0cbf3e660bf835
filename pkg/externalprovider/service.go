package externalprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/audit"
	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/utils"
)

const (
	MsgFederatedFailed       = "Google sign-in failed, please try again"
	MsgEmailNotVerified      = "Your Google email address is not verified"
	MsgPasswordLoginRequired = "An account with this email already exists. Sign in with your password, or reset it"
	MsgAccountLinked         = "This email is linked to a different Google account"
)

// ExternalProviderService runs the Google authorization code flow and
// reconciles the returned profile against local accounts.
type ExternalProviderService struct {
	provider        *ExternalProvider
	states          StateRepository
	loginService    *login.LoginService
	repo            account.Repository
	recorder        audit.Recorder
	stateExpiration time.Duration
	httpClient      *http.Client
}

// Option is a function that configures an ExternalProviderService
type Option func(*ExternalProviderService)

// WithStateExpiration sets the state expiration duration for OAuth2 flows
func WithStateExpiration(d time.Duration) Option {
	return func(s *ExternalProviderService) {
		if d > 0 {
			s.stateExpiration = d
		}
	}
}

// WithHTTPClient sets the HTTP client for external API calls
func WithHTTPClient(client *http.Client) Option {
	return func(s *ExternalProviderService) {
		s.httpClient = client
	}
}

func WithRecorder(r audit.Recorder) Option {
	return func(s *ExternalProviderService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewExternalProviderService(provider *ExternalProvider, states StateRepository, loginService *login.LoginService, opts ...Option) *ExternalProviderService {
	service := &ExternalProviderService{
		provider:        provider,
		states:          states,
		loginService:    loginService,
		repo:            loginService.Repository(),
		recorder:        audit.NopRecorder{},
		stateExpiration: 10 * time.Minute,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// InitiateOAuth2Flow stores a fresh state and returns the consent URL.
func (s *ExternalProviderService) InitiateOAuth2Flow(ctx context.Context) (string, error) {
	state, err := utils.RandomHex(32)
	if err != nil {
		return "", apperrors.Internal(err, "failed to generate state")
	}

	if err := s.states.StoreState(ctx, state, s.stateExpiration); err != nil {
		return "", apperrors.Dependency(err, "failed to store state")
	}

	authURL, err := s.provider.BuildAuthURL(state)
	if err != nil {
		return "", apperrors.Internal(err, "failed to build auth URL")
	}

	slog.Info("OAuth2 flow initiated", "provider", s.provider.ID)
	return authURL, nil
}

// HandleOAuth2Callback validates state, completes the code exchange and
// signs the reconciled account in.
func (s *ExternalProviderService) HandleOAuth2Callback(ctx context.Context, code, state string) (login.LoginResult, error) {
	if code == "" || state == "" {
		return login.LoginResult{}, s.failed(ctx, "", "", "missing_code_or_state", apperrors.Unauthorized(MsgFederatedFailed))
	}

	if err := s.states.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return login.LoginResult{}, s.failed(ctx, "", "", "invalid_state", apperrors.Unauthorized(MsgFederatedFailed))
		}
		return login.LoginResult{}, apperrors.Dependency(err, "failed to consume state")
	}

	token, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		return login.LoginResult{}, s.failed(ctx, "", "", "token_exchange", apperrors.Dependency(err, "failed to exchange code"))
	}

	userInfo, err := s.getUserInfo(ctx, token.AccessToken)
	if err != nil {
		return login.LoginResult{}, s.failed(ctx, "", "", "userinfo", apperrors.Dependency(err, "failed to fetch user info"))
	}

	return s.Reconcile(ctx, userInfo)
}

// Reconcile maps a verified provider profile onto a local account:
// unknown email creates a federated account, a password-only account is
// refused, and a matching federated id signs in.
func (s *ExternalProviderService) Reconcile(ctx context.Context, info ExternalUserInfo) (login.LoginResult, error) {
	email := account.NormalizeEmail(info.Email)
	if !info.EmailVerified {
		return login.LoginResult{}, s.failed(ctx, email, "", "email_not_verified", apperrors.Credential(apperrors.ErrCodeUnauthorized, MsgEmailNotVerified))
	}
	if info.ExternalID == "" || email == "" {
		return login.LoginResult{}, s.failed(ctx, email, "", "incomplete_profile", apperrors.Unauthorized(MsgFederatedFailed))
	}

	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		acct, err = s.createAccount(ctx, email, info)
	}
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return login.LoginResult{}, s.failed(ctx, email, "", "store", appErr)
		}
		return login.LoginResult{}, apperrors.Dependency(err, "failed to load account")
	}

	switch {
	case acct.FederatedID == "":
		return login.LoginResult{}, s.failed(ctx, email, acct.ID.String(), "password_account",
			apperrors.New(apperrors.ErrCodePasswordLoginRequired, MsgPasswordLoginRequired))
	case acct.FederatedID != info.ExternalID:
		return login.LoginResult{}, s.failed(ctx, email, acct.ID.String(), "federated_id_mismatch", apperrors.AlreadyExists(MsgAccountLinked))
	}

	result, err := s.loginService.IssueSession(ctx, acct)
	if err != nil {
		return login.LoginResult{}, err
	}
	slog.Info("Federated login successful", "provider", s.provider.ID, "account_id", acct.ID)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventFederatedLogin, Outcome: audit.OutcomeSuccess, AccountID: acct.ID.String(), Email: email})
	return result, nil
}

// createAccount inserts a federated account. Losing a creation race on the
// email re-reads the winner so the caller applies the normal policy to it.
func (s *ExternalProviderService) createAccount(ctx context.Context, email string, info ExternalUserInfo) (account.Account, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	acct, err := s.repo.Create(ctx, account.NewAccount{
		Email:       email,
		Name:        name,
		FederatedID: info.ExternalID,
		Photo:       info.Picture,
	})
	switch {
	case err == nil:
		slog.Info("Federated account created", "provider", s.provider.ID, "account_id", acct.ID)
		return acct, nil
	case errors.Is(err, account.ErrEmailTaken):
		return s.repo.GetByEmail(ctx, email)
	case errors.Is(err, account.ErrFederatedIDTaken):
		return account.Account{}, apperrors.AlreadyExists(MsgAccountLinked)
	default:
		return account.Account{}, err
	}
}

func (s *ExternalProviderService) failed(ctx context.Context, email, accountID, reason string, err *apperrors.Error) error {
	if apperrors.IsDependency(err) {
		slog.Error("Federated login failed", "provider", s.provider.ID, "reason", reason, "err", err)
	} else {
		slog.Warn("Federated login rejected", "provider", s.provider.ID, "reason", reason, "email", utils.MaskEmail(email))
	}
	s.recorder.Record(ctx, audit.Event{Type: audit.EventFederatedLogin, Outcome: audit.OutcomeFailure, AccountID: accountID, Email: email, Reason: reason})
	return err
}

// exchangeCodeForToken exchanges an authorization code for an access token
func (s *ExternalProviderService) exchangeCodeForToken(ctx context.Context, code string) (TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", s.provider.ClientID)
	data.Set("client_secret", s.provider.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", s.provider.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token TokenResponse
	if err := s.doJSON(req, &token); err != nil {
		return TokenResponse{}, fmt.Errorf("token request: %w", err)
	}
	if token.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("token response has no access token")
	}
	return token, nil
}

// getUserInfo retrieves user information from the provider's API
func (s *ExternalProviderService) getUserInfo(ctx context.Context, accessToken string) (ExternalUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.provider.UserInfoURL, nil)
	if err != nil {
		return ExternalUserInfo{}, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var raw googleUserInfo
	if err := s.doJSON(req, &raw); err != nil {
		return ExternalUserInfo{}, fmt.Errorf("user info request: %w", err)
	}

	return ExternalUserInfo{
		ExternalID:    raw.ID,
		Email:         raw.Email,
		EmailVerified: raw.VerifiedEmail,
		Name:          raw.Name,
		Picture:       raw.Picture,
	}, nil
}

func (s *ExternalProviderService) doJSON(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
