package login

import (
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PageRenderer renders the HTML pages behind the redirect oriented flows.
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, page string, data map[string]interface{})
}

// WriteJSON writes body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, body map[string]interface{}) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

// WriteSuccess writes {status:"success", message, ...extra}.
func WriteSuccess(w http.ResponseWriter, r *http.Request, message string, extra map[string]interface{}) {
	body := map[string]interface{}{"status": StatusSuccess, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, r, http.StatusOK, body)
}

// WriteError maps err onto its status code and writes {status:"error", message}.
// Dependency and internal details are logged, never returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatusCode()

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "code", appErr.Code, "err", err)
	}

	body := map[string]interface{}{"status": StatusError, "message": appErr.PublicMessage()}
	if retry, ok := apperrors.RetryAfter(err); ok {
		seconds := int(math.Ceil(retry.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		body["retryAfter"] = seconds
	}
	WriteJSON(w, r, status, body)
}

// WantsJSON reports whether the caller posted JSON or asked for it.
func WantsJSON(r *http.Request) bool {
	if isJSONBody(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

const (
	PageSignIn         = "sign_in"
	PageSignUp         = "sign_up"
	PageForgotPassword = "forgot_password"
	PageResetPassword  = "reset_password"
	PageResetInvalid   = "reset_invalid"
	PageProfile        = "profile"
)

// RespondSession sets the session cookie for result. JSON callers get the
// token and redirect target in the body, form posts are redirected.
func RespondSession(w http.ResponseWriter, r *http.Request, cookies tokengenerator.CookieSetter, result LoginResult, message, redirect string) {
	cookies.SetCookie(w, result.Token, result.ExpiresAt)
	if !WantsJSON(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	WriteSuccess(w, r, message, map[string]interface{}{
		"token":    result.Token,
		"redirect": redirect,
	})
}

// RespondFailure writes err as JSON, or re-renders page with the public
// message when the request came from an HTML form.
func RespondFailure(w http.ResponseWriter, r *http.Request, pages PageRenderer, page string, err error, data map[string]interface{}) {
	if pages == nil || WantsJSON(r) {
		WriteError(w, r, err)
		return
	}
	appErr := apperrors.From(err)
	if appErr.HTTPStatusCode() >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "code", appErr.Code, "err", err)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Error"] = appErr.PublicMessage()
	pages.Render(w, appErr.HTTPStatusCode(), page, data)
}
