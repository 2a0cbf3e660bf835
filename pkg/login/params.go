package login

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/legendboard/pkg/account"
)

type RegisterParams struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
}

type LoginParams struct {
	Email    string
	Password string
}

type ChangePasswordParams struct {
	CurrentPassword    string
	Password           string
	ConfirmNewPassword string
}

type ResetPasswordParams struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// Principal is the verified identity attached to a request.
type Principal struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Photo       string    `json:"photo,omitempty"`
	HasPassword bool      `json:"hasPassword"`
	Federated   bool      `json:"federated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewPrincipal maps an account to its public view.
func NewPrincipal(a account.Account) Principal {
	return Principal{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Photo:       a.Photo,
		HasPassword: a.HasPassword(),
		Federated:   a.FederatedID != "",
		CreatedAt:   a.CreatedAt,
	}
}

// LoginResult is a freshly minted session for Principal.
type LoginResult struct {
	Principal Principal
	Token     string
	ExpiresAt time.Time
}
