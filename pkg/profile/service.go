package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/legendboard/pkg/account"
	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/login"
)

const (
	MsgNameRequired   = "Name is required"
	MsgProfileUpdated = "Profile updated"
	MsgPasswordUpdate = "Password updated"
)

// User is the public view returned after a profile update.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Photo string    `json:"photo"`
}

type ProfileService struct {
	repo  account.Repository
	login *login.LoginService
}

func NewProfileService(loginService *login.LoginService) *ProfileService {
	return &ProfileService{
		repo:  loginService.Repository(),
		login: loginService,
	}
}

// GetProfile reloads the account behind an authenticated principal.
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (login.Principal, error) {
	acct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return login.Principal{}, s.lookupError(err, "failed to load account")
	}
	return login.NewPrincipal(acct), nil
}

// UpdateName changes the display name. It is the only mutable profile field.
func (s *ProfileService) UpdateName(ctx context.Context, id uuid.UUID, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, apperrors.Validation(apperrors.ErrCodeMissingFields, MsgNameRequired)
	}

	acct, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		return User{}, s.lookupError(err, "failed to update name")
	}
	slog.Info("Profile updated", "account_id", acct.ID)

	var user User
	if err := copier.Copy(&user, &acct); err != nil {
		return User{}, apperrors.Internal(err, "failed to map account")
	}
	return user, nil
}

// UpdatePassword delegates to the login core so the credential version bump
// and the fresh session stay in one place.
func (s *ProfileService) UpdatePassword(ctx context.Context, id uuid.UUID, params login.ChangePasswordParams) (login.LoginResult, error) {
	return s.login.ChangePassword(ctx, id, params)
}

// A missing account behind a valid token is reported like a bad token.
func (s *ProfileService) lookupError(err error, msg string) error {
	if errors.Is(err, account.ErrNotFound) {
		return apperrors.Unauthorized(login.MsgUnauthorized)
	}
	return apperrors.Dependency(err, msg)
}
