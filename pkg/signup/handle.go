package signup

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

type Handle struct {
	loginService *login.LoginService
	cookies      tokengenerator.CookieSetter
	pages        login.PageRenderer
	limiter      *ratelimit.Limiter
	prefix       string
}

type Option func(*Handle)

func NewHandle(opts ...Option) *Handle {
	h := &Handle{prefix: "/users"}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func WithLoginService(s *login.LoginService) Option {
	return func(h *Handle) { h.loginService = s }
}

func WithCookieSetter(c tokengenerator.CookieSetter) Option {
	return func(h *Handle) { h.cookies = c }
}

func WithPages(p login.PageRenderer) Option {
	return func(h *Handle) { h.pages = p }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handle) { h.limiter = l }
}

func WithPrefix(prefix string) Option {
	return func(h *Handle) { h.prefix = prefix }
}

type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

type SignUpInput struct {
	Payload *SignUpRequest `in:"body=json"`
}

func (h *Handle) Routes(r chi.Router) {
	r.Get("/sign_up", h.GetSignUp)
	r.With(h.limiter.Middleware(ratelimit.ClassRegister), login.BindJSONOrForm(SignUpInput{})).Post("/sign_up", h.PostSignUp)
}

// GetSignUp renders the registration form.
// (GET /sign_up)
func (h *Handle) GetSignUp(w http.ResponseWriter, r *http.Request) {
	if h.pages == nil {
		http.NotFound(w, r)
		return
	}
	h.pages.Render(w, http.StatusOK, login.PageSignUp, map[string]interface{}{"Prefix": h.prefix})
}

// PostSignUp registers a password account and signs it in.
// (POST /sign_up)
func (h *Handle) PostSignUp(w http.ResponseWriter, r *http.Request) {
	req := signUpRequest(r)

	result, err := h.loginService.Register(r.Context(), login.RegisterParams{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
	})
	if err != nil {
		login.RespondFailure(w, r, h.pages, login.PageSignUp, err, map[string]interface{}{
			"Prefix": h.prefix,
			"Email":  req.Email,
			"Name":   req.Name,
		})
		return
	}

	login.RespondSession(w, r, h.cookies, result, "Registration successful", h.prefix+"/profile")
}

func signUpRequest(r *http.Request) SignUpRequest {
	if in, ok := login.BoundInput[SignUpInput](r); ok && in.Payload != nil {
		return *in.Payload
	}
	return SignUpRequest{
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		Name:            r.FormValue("name"),
	}
}
