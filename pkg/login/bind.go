package login

import (
	"net/http"

	"github.com/ggicci/httpin"
)

// BindJSONOrForm decodes JSON bodies into input with httpin. Other content
// types pass through untouched so handlers can read form values instead.
func BindJSONOrForm(input interface{}) func(http.Handler) http.Handler {
	decode := httpin.NewInput(input)
	return func(next http.Handler) http.Handler {
		jsonNext := decode(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isJSONBody(r) {
				jsonNext.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BoundInput returns the httpin input stored for this request, if any.
func BoundInput[T any](r *http.Request) (*T, bool) {
	in, ok := r.Context().Value(httpin.Input).(*T)
	return in, ok && in != nil
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInInput struct {
	Payload *SignInRequest `in:"body=json"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordInput struct {
	Payload *ForgotPasswordRequest `in:"body=json"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ResetPasswordInput struct {
	Payload *ResetPasswordRequest `in:"body=json"`
}

func signInRequest(r *http.Request) SignInRequest {
	if in, ok := BoundInput[SignInInput](r); ok && in.Payload != nil {
		return *in.Payload
	}
	return SignInRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
}

func forgotPasswordRequest(r *http.Request) ForgotPasswordRequest {
	if in, ok := BoundInput[ForgotPasswordInput](r); ok && in.Payload != nil {
		return *in.Payload
	}
	return ForgotPasswordRequest{Email: r.FormValue("email")}
}

func resetPasswordRequest(r *http.Request) ResetPasswordRequest {
	if in, ok := BoundInput[ResetPasswordInput](r); ok && in.Payload != nil {
		return *in.Payload
	}
	return ResetPasswordRequest{Password: r.FormValue("password"), ConfirmPassword: r.FormValue("confirmPassword")}
}
