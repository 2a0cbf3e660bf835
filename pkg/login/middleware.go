package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/tendant/legendboard/pkg/audit"
	apperrors "github.com/tendant/legendboard/pkg/errors"
)

type principalKey struct{}

// Authenticator resolves a session token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// AuthMiddleware verifies session tokens from the Authorization header or
// the session cookie. It only reads from the credential store.
type AuthMiddleware struct {
	auth       Authenticator
	signInPath string
	recorder   audit.Recorder
}

func NewAuthMiddleware(auth Authenticator, signInPath string, recorder audit.Recorder) *AuthMiddleware {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &AuthMiddleware{auth: auth, signInPath: signInPath, recorder: recorder}
}

// TokenFromRequest prefers a bearer header over the cookie.
func TokenFromRequest(r *http.Request) string {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		return token
	}
	return jwtauth.TokenFromCookie(r)
}

// RequirePage redirects unauthenticated requests to the sign in page.
func (m *AuthMiddleware) RequirePage(next http.Handler) http.Handler {
	return m.require(next, func(w http.ResponseWriter, r *http.Request, _ error) {
		http.Redirect(w, r, m.signInPath, http.StatusFound)
	})
}

// RequireAPI answers unauthenticated requests with a 401 JSON body.
func (m *AuthMiddleware) RequireAPI(next http.Handler) http.Handler {
	return m.require(next, func(w http.ResponseWriter, r *http.Request, err error) {
		if err == nil || !apperrors.IsDependency(err) {
			err = apperrors.Unauthorized(MsgUnauthorized)
		}
		WriteError(w, r, err)
	})
}

func (m *AuthMiddleware) require(next http.Handler, reject func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			slog.Debug("No session token", "path", r.URL.Path)
			reject(w, r, nil)
			return
		}

		p, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			slog.Debug("Session rejected", "path", r.URL.Path, "err", err)
			m.recorder.Record(r.Context(), audit.Event{
				Type:    audit.EventSessionReject,
				Outcome: audit.OutcomeFailure,
				Reason:  string(apperrors.GetCode(err)),
			})
			reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional attaches a principal when a valid token is present and never
// rejects the request.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			slog.Debug("Ignoring invalid optional session", "path", r.URL.Path, "err", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
