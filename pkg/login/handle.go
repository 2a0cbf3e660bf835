package login

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/legendboard/pkg/audit"
	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

// Handle serves sign in, logout and the password reset pages.
type Handle struct {
	service  *LoginService
	cookies  tokengenerator.CookieSetter
	auth     *AuthMiddleware
	pages    PageRenderer
	limiter  *ratelimit.Limiter
	recorder audit.Recorder
	prefix   string
}

type HandleOption func(*Handle)

func WithPages(pages PageRenderer) HandleOption {
	return func(h *Handle) { h.pages = pages }
}

func WithLimiter(l *ratelimit.Limiter) HandleOption {
	return func(h *Handle) { h.limiter = l }
}

func WithHandleRecorder(r audit.Recorder) HandleOption {
	return func(h *Handle) { h.recorder = r }
}

// NewHandle builds the handle for routes mounted under prefix.
func NewHandle(service *LoginService, cookies tokengenerator.CookieSetter, auth *AuthMiddleware, prefix string, opts ...HandleOption) Handle {
	h := Handle{
		service:  service,
		cookies:  cookies,
		auth:     auth,
		recorder: audit.NopRecorder{},
		prefix:   prefix,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

func (h Handle) profilePath() string { return h.prefix + "/profile" }

func (h Handle) Routes(r chi.Router) {
	r.Get("/sign_in", h.GetSignIn)
	r.With(h.limiter.Middleware(ratelimit.ClassLogin), BindJSONOrForm(SignInInput{})).Post("/sign_in", h.PostSignIn)
	r.With(h.auth.RequirePage).Get("/logout", h.GetLogout)

	r.Get("/forgotPassword", h.GetForgotPassword)
	r.With(h.limiter.Middleware(ratelimit.ClassForgotPassword), BindJSONOrForm(ForgotPasswordInput{})).Post("/auth/forgot-password", h.PostForgotPassword)
	r.Get("/resetPassword/{token}", h.GetResetPassword)
	r.With(BindJSONOrForm(ResetPasswordInput{})).Post("/resetPassword/{token}", h.PostResetPassword)
}

func (h Handle) render(w http.ResponseWriter, status int, page string, data map[string]interface{}) {
	if h.pages == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Prefix"] = h.prefix
	h.pages.Render(w, status, page, data)
}

func (h Handle) pageData() map[string]interface{} {
	return map[string]interface{}{"Prefix": h.prefix}
}

// GetSignIn renders the sign in form.
// (GET /sign_in)
func (h Handle) GetSignIn(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, PageSignIn, nil)
}

// PostSignIn logs a user in with email and password.
// (POST /sign_in)
func (h Handle) PostSignIn(w http.ResponseWriter, r *http.Request) {
	req := signInRequest(r)

	result, err := h.service.Login(r.Context(), LoginParams{Email: req.Email, Password: req.Password})
	if err != nil {
		data := h.pageData()
		data["Email"] = req.Email
		RespondFailure(w, r, h.pages, PageSignIn, err, data)
		return
	}
	RespondSession(w, r, h.cookies, result, "Login successful", h.profilePath())
}

// GetLogout clears the session cookie.
// (GET /logout)
func (h Handle) GetLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearCookie(w)
	event := audit.Event{Type: audit.EventLogout, Outcome: audit.OutcomeSuccess}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		event.AccountID = p.ID.String()
	}
	h.recorder.Record(r.Context(), event)
	http.Redirect(w, r, "/", http.StatusFound)
}

// GetForgotPassword renders the reset request form.
// (GET /forgotPassword)
func (h Handle) GetForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, PageForgotPassword, nil)
}

const msgResetRequested = "If that email is registered, a password reset link is on its way"

// PostForgotPassword starts the reset flow. The reply is the same whether
// or not the email is registered.
// (POST /auth/forgot-password)
func (h Handle) PostForgotPassword(w http.ResponseWriter, r *http.Request) {
	req := forgotPasswordRequest(r)

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		RespondFailure(w, r, h.pages, PageForgotPassword, err, h.pageData())
		return
	}

	if WantsJSON(r) || h.pages == nil {
		WriteSuccess(w, r, msgResetRequested, nil)
		return
	}
	h.render(w, http.StatusOK, PageForgotPassword, map[string]interface{}{"Notice": msgResetRequested})
}

// GetResetPassword renders the reset form for a live token.
// (GET /resetPassword/{token})
func (h Handle) GetResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.service.ValidateResetToken(r.Context(), token); err != nil {
		RespondFailure(w, r, h.pages, PageResetInvalid, err, h.pageData())
		return
	}
	h.render(w, http.StatusOK, PageResetPassword, map[string]interface{}{"Token": token})
}

// PostResetPassword consumes the token and signs the account in.
// (POST /resetPassword/{token})
func (h Handle) PostResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	req := resetPasswordRequest(r)

	result, err := h.service.ResetPassword(r.Context(), ResetPasswordParams{
		Token:           token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		data := h.pageData()
		data["Token"] = token
		RespondFailure(w, r, h.pages, PageResetPassword, err, data)
		return
	}
	RespondSession(w, r, h.cookies, result, "Password has been reset", h.profilePath())
}
