package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/audit"
	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/notification"
	"github.com/tendant/legendboard/pkg/tokengenerator"
	"github.com/tendant/legendboard/pkg/utils"
)

const (
	MsgMissingFields            = "Please fill in all fields"
	MsgMissingCredentials       = "Email and password are required"
	MsgMissingEmail             = "Please enter your email"
	MsgInvalidEmail             = "Email format is invalid"
	MsgPasswordMismatch         = "Passwords do not match"
	MsgEmailTaken               = "Email is already registered"
	MsgInvalidCredentials       = "Email or password is incorrect"
	MsgFederatedLoginRequired   = "This account signs in with Google. Continue with Google or reset your password to set one"
	MsgCurrentPasswordIncorrect = "Current password is incorrect"
	MsgResetTokenInvalid        = "Reset link is invalid or has expired"
	MsgUnauthorized             = "Please sign in to continue"
)

// NotificationSender delivers templated notices. *notification.NotificationManager satisfies it.
type NotificationSender interface {
	Send(ctx context.Context, noticeType notification.NoticeType, data notification.NotificationData) error
}

// LoginService owns the credential lifecycle: registration, password
// login, password change, the two phase reset flow and session checks.
type LoginService struct {
	repo          account.Repository
	passwords     *PasswordManager
	tokens        tokengenerator.TokenGenerator
	notifier      NotificationSender
	recorder      audit.Recorder
	resetExpiry   time.Duration
	resetLinkBase string
	now           func() time.Time
}

type ServiceOption func(*LoginService)

func WithNotifier(n NotificationSender) ServiceOption {
	return func(s *LoginService) { s.notifier = n }
}

func WithRecorder(r audit.Recorder) ServiceOption {
	return func(s *LoginService) { s.recorder = r }
}

func WithResetTokenExpiry(d time.Duration) ServiceOption {
	return func(s *LoginService) { s.resetExpiry = d }
}

// WithResetLinkBase sets the URL the raw token is appended to,
// e.g. "https://legendboard.example/users/resetPassword".
func WithResetLinkBase(base string) ServiceOption {
	return func(s *LoginService) { s.resetLinkBase = strings.TrimRight(base, "/") }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *LoginService) { s.now = now }
}

func NewLoginService(repo account.Repository, passwords *PasswordManager, tokens tokengenerator.TokenGenerator, opts ...ServiceOption) *LoginService {
	s := &LoginService{
		repo:          repo,
		passwords:     passwords,
		tokens:        tokens,
		recorder:      audit.NopRecorder{},
		resetExpiry:   time.Hour,
		resetLinkBase: "http://localhost:3000/users/resetPassword",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository exposes the credential store to the sibling handles.
func (s *LoginService) Repository() account.Repository {
	return s.repo
}

// Register creates a password account and signs it in.
func (s *LoginService) Register(ctx context.Context, params RegisterParams) (LoginResult, error) {
	email := account.NormalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)

	if email == "" || params.Password == "" || params.ConfirmPassword == "" || name == "" {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeMissingFields, MsgMissingFields)
	}
	if err := s.checkLength(params.Password); err != nil {
		return LoginResult{}, err
	}
	if !govalidator.IsEmail(email) {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeInvalidEmail, MsgInvalidEmail)
	}
	if params.Password != params.ConfirmPassword {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodePasswordMismatch, MsgPasswordMismatch)
	}

	hash, err := s.passwords.HashPassword(params.Password)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err, "failed to hash password")
	}

	acct, err := s.repo.Create(ctx, account.NewAccount{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			s.recorder.Record(ctx, audit.Event{Type: audit.EventRegister, Outcome: audit.OutcomeFailure, Email: email, Reason: "email_taken"})
			return LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeAlreadyExists, MsgEmailTaken)
		}
		return LoginResult{}, apperrors.Dependency(err, "failed to create account")
	}

	slog.Info("Account registered", "account_id", acct.ID, "email", utils.MaskEmail(email))
	s.recorder.Record(ctx, audit.Event{Type: audit.EventRegister, Outcome: audit.OutcomeSuccess, AccountID: acct.ID.String(), Email: email})
	return s.IssueSession(ctx, acct)
}

// Login verifies email and password. Unknown email and wrong password
// produce the same error after the same amount of hashing work.
func (s *LoginService) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	email := account.NormalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeMissingFields, MsgMissingCredentials)
	}

	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.passwords.VerifyDummy(params.Password)
			return LoginResult{}, s.loginFailed(ctx, email, "", "unknown_email")
		}
		return LoginResult{}, apperrors.Dependency(err, "failed to load account")
	}

	if !acct.HasPassword() {
		s.passwords.VerifyDummy(params.Password)
		if acct.IsFederatedOnly() {
			s.recorder.Record(ctx, audit.Event{Type: audit.EventLogin, Outcome: audit.OutcomeFailure, AccountID: acct.ID.String(), Email: email, Reason: "federated_only"})
			return LoginResult{}, apperrors.Credential(apperrors.ErrCodeFederatedLoginRequired, MsgFederatedLoginRequired)
		}
		return LoginResult{}, s.loginFailed(ctx, email, acct.ID.String(), "no_password")
	}

	match, needsRehash, err := s.passwords.CheckPasswordHash(params.Password, acct.PasswordHash)
	if err != nil {
		slog.Error("Failed checking password hash", "account_id", acct.ID, "err", err)
	}
	if !match {
		return LoginResult{}, s.loginFailed(ctx, email, acct.ID.String(), "wrong_password")
	}

	if needsRehash {
		s.upgradeHash(ctx, acct, params.Password)
	}

	slog.Info("Login successful", "account_id", acct.ID)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventLogin, Outcome: audit.OutcomeSuccess, AccountID: acct.ID.String(), Email: email})
	return s.IssueSession(ctx, acct)
}

func (s *LoginService) loginFailed(ctx context.Context, email, accountID, reason string) error {
	slog.Warn("Login failed", "email", utils.MaskEmail(email), "reason", reason)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventLogin, Outcome: audit.OutcomeFailure, AccountID: accountID, Email: email, Reason: reason})
	return apperrors.Credential(apperrors.ErrCodeInvalidCredentials, MsgInvalidCredentials)
}

func (s *LoginService) upgradeHash(ctx context.Context, acct account.Account, password string) {
	newHash, err := s.passwords.HashPassword(password)
	if err != nil {
		slog.Error("Failed to rehash password", "account_id", acct.ID, "err", err)
		return
	}
	if err := s.repo.RehashPassword(ctx, acct.ID, acct.PasswordHash, newHash); err != nil {
		slog.Error("Failed to store rehashed password", "account_id", acct.ID, "err", err)
		return
	}
	slog.Info("Password hash upgraded", "account_id", acct.ID)
}

// ChangePassword replaces the password of an authenticated account and
// returns a session carrying the new credential version.
func (s *LoginService) ChangePassword(ctx context.Context, accountID uuid.UUID, params ChangePasswordParams) (LoginResult, error) {
	if params.CurrentPassword == "" || params.Password == "" || params.ConfirmNewPassword == "" {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeMissingFields, MsgMissingFields)
	}
	if params.Password != params.ConfirmNewPassword {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodePasswordMismatch, MsgPasswordMismatch)
	}
	if err := s.checkLength(params.Password); err != nil {
		return LoginResult{}, err
	}

	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{}, apperrors.Unauthorized(MsgUnauthorized)
		}
		return LoginResult{}, apperrors.Dependency(err, "failed to load account")
	}

	var match bool
	if acct.HasPassword() {
		match, _, err = s.passwords.CheckPasswordHash(params.CurrentPassword, acct.PasswordHash)
		if err != nil {
			slog.Error("Failed checking password hash", "account_id", acct.ID, "err", err)
		}
	} else {
		s.passwords.VerifyDummy(params.CurrentPassword)
	}
	if !match {
		s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordChange, Outcome: audit.OutcomeFailure, AccountID: acct.ID.String(), Reason: "current_password_incorrect"})
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeCurrentPasswordIncorrect, MsgCurrentPasswordIncorrect)
	}

	hash, err := s.passwords.HashPassword(params.Password)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err, "failed to hash password")
	}
	updated, err := s.repo.UpdatePassword(ctx, acct.ID, hash)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{}, apperrors.Unauthorized(MsgUnauthorized)
		}
		return LoginResult{}, apperrors.Dependency(err, "failed to update password")
	}

	slog.Info("Password changed", "account_id", updated.ID, "credential_version", updated.CredentialVersion)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordChange, Outcome: audit.OutcomeSuccess, AccountID: updated.ID.String()})
	return s.IssueSession(ctx, updated)
}

// RequestPasswordReset starts the reset flow. It reports success for
// unknown emails. If the mail cannot be sent the stored token is rolled
// back before the dependency error is returned.
func (s *LoginService) RequestPasswordReset(ctx context.Context, email string) error {
	email = account.NormalizeEmail(email)
	if email == "" {
		return apperrors.Validation(apperrors.ErrCodeMissingFields, MsgMissingEmail)
	}

	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			slog.Info("Password reset requested for unknown email", "email", utils.MaskEmail(email))
			s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordResetRequest, Outcome: audit.OutcomeSuccess, Email: email, Reason: "unknown_email"})
			return nil
		}
		return apperrors.Dependency(err, "failed to load account")
	}

	token, tokenHash, err := GenerateResetToken()
	if err != nil {
		return apperrors.Internal(err, "failed to generate reset token")
	}
	if err := s.repo.SetResetToken(ctx, acct.ID, tokenHash, s.now().Add(s.resetExpiry)); err != nil {
		return apperrors.Dependency(err, "failed to store reset token")
	}

	if err := s.sendResetEmail(ctx, acct, token); err != nil {
		// the request context may already be done, the rollback must still run
		rollbackCtx := context.WithoutCancel(ctx)
		if rbErr := s.repo.ClearResetToken(rollbackCtx, acct.ID, tokenHash); rbErr != nil {
			slog.Error("Failed to roll back reset token", "account_id", acct.ID, "err", rbErr)
		}
		slog.Error("Failed to send password reset email", "account_id", acct.ID, "err", err)
		s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordResetRequest, Outcome: audit.OutcomeFailure, AccountID: acct.ID.String(), Email: email, Reason: "mail_failed"})
		return apperrors.Dependency(err, "failed to send password reset email")
	}

	slog.Info("Password reset email sent", "account_id", acct.ID)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordResetRequest, Outcome: audit.OutcomeSuccess, AccountID: acct.ID.String(), Email: email})
	return nil
}

func (s *LoginService) sendResetEmail(ctx context.Context, acct account.Account, token string) error {
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	return s.notifier.Send(ctx, notification.PasswordResetInit, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Name":      acct.Name,
			"Link":      s.resetLinkBase + "/" + token,
			"ExpiresIn": humanizeDuration(s.resetExpiry),
		},
	})
}

// ValidateResetToken reports whether token is outstanding and unexpired.
func (s *LoginService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.lookupResetToken(ctx, token)
	return err
}

func (s *LoginService) lookupResetToken(ctx context.Context, token string) (account.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return account.Account{}, apperrors.Validation(apperrors.ErrCodeResetTokenInvalid, MsgResetTokenInvalid)
	}
	acct, err := s.repo.GetByResetTokenHash(ctx, HashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, account.ErrResetTokenNotFound) || errors.Is(err, account.ErrNotFound) {
			return account.Account{}, apperrors.Validation(apperrors.ErrCodeResetTokenInvalid, MsgResetTokenInvalid)
		}
		return account.Account{}, apperrors.Dependency(err, "failed to look up reset token")
	}
	return acct, nil
}

// ResetPassword consumes a reset token and signs the account in. Wrong and
// expired tokens are indistinguishable.
func (s *LoginService) ResetPassword(ctx context.Context, params ResetPasswordParams) (LoginResult, error) {
	if _, err := s.lookupResetToken(ctx, params.Token); err != nil {
		if apperrors.IsValidation(err) {
			s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordReset, Outcome: audit.OutcomeFailure, Reason: "invalid_token"})
		}
		return LoginResult{}, err
	}

	if params.Password == "" || params.ConfirmPassword == "" {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodeMissingFields, MsgMissingFields)
	}
	if err := s.checkLength(params.Password); err != nil {
		return LoginResult{}, err
	}
	if params.Password != params.ConfirmPassword {
		return LoginResult{}, apperrors.Validation(apperrors.ErrCodePasswordMismatch, MsgPasswordMismatch)
	}

	hash, err := s.passwords.HashPassword(params.Password)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err, "failed to hash password")
	}

	acct, err := s.repo.ConsumeResetToken(ctx, HashResetToken(strings.TrimSpace(params.Token)), s.now(), hash)
	if err != nil {
		if errors.Is(err, account.ErrResetTokenNotFound) {
			s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordReset, Outcome: audit.OutcomeFailure, Reason: "token_consumed"})
			return LoginResult{}, apperrors.Validation(apperrors.ErrCodeResetTokenInvalid, MsgResetTokenInvalid)
		}
		return LoginResult{}, apperrors.Dependency(err, "failed to reset password")
	}

	slog.Info("Password reset", "account_id", acct.ID, "credential_version", acct.CredentialVersion)
	s.recorder.Record(ctx, audit.Event{Type: audit.EventPasswordReset, Outcome: audit.OutcomeSuccess, AccountID: acct.ID.String()})
	return s.IssueSession(ctx, acct)
}

// Authenticate resolves a session token to its principal. Any failure is
// reported as UNAUTHORIZED except store outages.
func (s *LoginService) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, MsgUnauthorized)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, MsgUnauthorized)
	}

	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, MsgUnauthorized)
		}
		return Principal{}, apperrors.Dependency(err, "failed to load account")
	}
	if claims.Version != acct.CredentialVersion {
		return Principal{}, apperrors.Unauthorized(MsgUnauthorized).
			WithDetail("reason", "credential_version")
	}
	return NewPrincipal(acct), nil
}

// IssueSession mints a session token for acct.
func (s *LoginService) IssueSession(ctx context.Context, acct account.Account) (LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(acct.ID.String(), acct.CredentialVersion)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err, "failed to create session token")
	}
	return LoginResult{Principal: NewPrincipal(acct), Token: token, ExpiresAt: expiresAt}, nil
}

// PurgeExpiredResetTokens clears reset fields past their expiry.
func (s *LoginService) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Purged expired reset tokens", "count", n)
	}
	return n, nil
}

func (s *LoginService) checkLength(password string) error {
	if utf8.RuneCountInString(password) < s.passwords.MinLength() {
		return apperrors.Newf(apperrors.ErrCodePasswordTooShort, "Password must be at least %d characters", s.passwords.MinLength())
	}
	if max := s.passwords.MaxBytes(); max > 0 && len(password) > max {
		return apperrors.Newf(apperrors.ErrCodePasswordTooLong, "Password must be at most %d bytes", max)
	}
	return nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
