package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

type Handle struct {
	profileService *ProfileService
	auth           *login.AuthMiddleware
	cookies        tokengenerator.CookieSetter
	pages          login.PageRenderer
	prefix         string
}

func NewHandle(profileService *ProfileService, auth *login.AuthMiddleware, cookies tokengenerator.CookieSetter, pages login.PageRenderer, prefix string) Handle {
	return Handle{
		profileService: profileService,
		auth:           auth,
		cookies:        cookies,
		pages:          pages,
		prefix:         prefix,
	}
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type UpdateProfileInput struct {
	Payload *UpdateProfileRequest `in:"body=json"`
}

type UpdatePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	Password           string `json:"password"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type UpdatePasswordInput struct {
	Payload *UpdatePasswordRequest `in:"body=json"`
}

func (h Handle) Routes(r chi.Router) {
	r.With(h.auth.RequirePage).Get("/profile", h.GetProfile)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAPI)
		r.With(login.BindJSONOrForm(UpdateProfileInput{})).Post("/updateProfile", h.UpdateProfile)
		r.With(login.BindJSONOrForm(UpdatePasswordInput{})).Post("/updatePassword", h.UpdatePassword)
	})
}

// GetProfile renders the signed-in user's page, or returns it as JSON.
// (GET /profile)
func (h Handle) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := login.PrincipalFromContext(r.Context())

	user, err := h.profileService.GetProfile(r.Context(), principal.ID)
	if err != nil {
		login.RespondFailure(w, r, h.pages, login.PageProfile, err, nil)
		return
	}

	if h.pages == nil || login.WantsJSON(r) {
		login.WriteSuccess(w, r, "", map[string]interface{}{"user": user})
		return
	}
	h.pages.Render(w, http.StatusOK, login.PageProfile, map[string]interface{}{
		"Prefix": h.prefix,
		"User":   user,
	})
}

// UpdateProfile changes the display name.
// (POST /updateProfile)
func (h Handle) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := login.PrincipalFromContext(r.Context())

	var name string
	if in, ok := login.BoundInput[UpdateProfileInput](r); ok && in.Payload != nil {
		name = in.Payload.Name
	} else {
		name = r.FormValue("name")
	}

	user, err := h.profileService.UpdateName(r.Context(), principal.ID, name)
	if err != nil {
		login.WriteError(w, r, err)
		return
	}
	login.WriteSuccess(w, r, MsgProfileUpdated, map[string]interface{}{"user": user})
}

// UpdatePassword changes the password and reissues the session cookie.
// (POST /updatePassword)
func (h Handle) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := login.PrincipalFromContext(r.Context())
	if !ok {
		login.WriteError(w, r, apperrors.Unauthorized(login.MsgUnauthorized))
		return
	}

	var req UpdatePasswordRequest
	if in, ok := login.BoundInput[UpdatePasswordInput](r); ok && in.Payload != nil {
		req = *in.Payload
	} else {
		req = UpdatePasswordRequest{
			CurrentPassword:    r.FormValue("currentPassword"),
			Password:           r.FormValue("password"),
			ConfirmNewPassword: r.FormValue("confirmNewPassword"),
		}
	}

	result, err := h.profileService.UpdatePassword(r.Context(), principal.ID, login.ChangePasswordParams{
		CurrentPassword:    req.CurrentPassword,
		Password:           req.Password,
		ConfirmNewPassword: req.ConfirmNewPassword,
	})
	if err != nil {
		login.WriteError(w, r, err)
		return
	}
	login.RespondSession(w, r, h.cookies, result, MsgPasswordUpdate, h.prefix+"/profile")
}
