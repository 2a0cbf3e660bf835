package externalprovider

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tendant/legendboard/pkg/errors"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

type Handle struct {
	service *ExternalProviderService
	cookies tokengenerator.CookieSetter
	pages   login.PageRenderer
	limiter *ratelimit.Limiter
	prefix  string
}

func NewHandle(service *ExternalProviderService, cookies tokengenerator.CookieSetter, pages login.PageRenderer, limiter *ratelimit.Limiter, prefix string) Handle {
	return Handle{
		service: service,
		cookies: cookies,
		pages:   pages,
		limiter: limiter,
		prefix:  prefix,
	}
}

func (h Handle) Routes(r chi.Router) {
	r.With(h.limiter.Middleware(ratelimit.ClassFederated)).Get("/google", h.StartGoogle)
	r.Get("/auth/google/callback", h.GoogleCallback)
}

// StartGoogle redirects to Google's consent screen.
// (GET /google)
func (h Handle) StartGoogle(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.InitiateOAuth2Flow(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback completes the flow and sets the session cookie.
// (GET /auth/google/callback)
func (h Handle) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") != "" {
		// user denied consent
		h.fail(w, r, apperrors.Unauthorized(MsgFederatedFailed))
		return
	}

	result, err := h.service.HandleOAuth2Callback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	login.RespondSession(w, r, h.cookies, result, "Login successful", h.prefix+"/profile")
}

func (h Handle) fail(w http.ResponseWriter, r *http.Request, err error) {
	login.RespondFailure(w, r, h.pages, login.PageSignIn, err, map[string]interface{}{"Prefix": h.prefix})
}
