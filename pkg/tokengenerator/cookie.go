package tokengenerator

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session assertion.
const SessionCookieName = "jwt"

// CookieSetter interface defines methods for cookie operations
type CookieSetter interface {
	// SetCookie sets the session cookie with the given value and expiry
	SetCookie(w http.ResponseWriter, tokenValue string, expire time.Time)

	// ClearCookie expires the session cookie immediately
	ClearCookie(w http.ResponseWriter)
}

// BaseCookieSetter provides a base implementation of CookieSetter
type BaseCookieSetter struct {
	Name     string
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SetCookie sets a cookie with the given value and expiry
func (c *BaseCookieSetter) SetCookie(w http.ResponseWriter, tokenValue string, expire time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Path:     c.Path,
		Value:    tokenValue,
		Expires:  expire,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearCookie clears a cookie
func (c *BaseCookieSetter) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Path:     c.Path,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// NewCookieSetter creates the session cookie setter. Secure should be true in production.
func NewCookieSetter(secure bool, sameSite http.SameSite) *BaseCookieSetter {
	return &BaseCookieSetter{
		Name:     SessionCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
