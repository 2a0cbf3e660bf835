package login

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

type fakePages struct{}

func (fakePages) Render(w http.ResponseWriter, status int, page string, data map[string]interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "page=%s error=%v notice=%v", page, data["Error"], data["Notice"])
}

func newTestRouter(t *testing.T, env *testEnv, opts ...HandleOption) http.Handler {
	t.Helper()
	cookies := tokengenerator.NewCookieSetter(false, http.SameSiteLaxMode)
	auth := NewAuthMiddleware(env.service, "/users/sign_in", nil)
	h := NewHandle(env.service, cookies, auth, "/users", append([]HandleOption{WithPages(fakePages{})}, opts...)...)

	r := chi.NewRouter()
	r.Route("/users", h.Routes)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.1:4000"
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return body
}

func sessionCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == tokengenerator.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestHandle_SignInJSON(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	router := newTestRouter(t, env)

	resp := postJSON(t, router, "/users/sign_in", map[string]string{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "/users/profile", body["redirect"])
	assert.NotEmpty(t, body["token"])

	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, body["token"], c.Value)

	resp = postJSON(t, router, "/users/sign_in", map[string]string{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	body = decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, MsgInvalidCredentials, body["message"])
}

func TestHandle_SignInForm(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	router := newTestRouter(t, env)

	form := url.Values{"email": {"a@x.com"}, "password": {"pw123456"}}
	req := httptest.NewRequest(http.MethodPost, "/users/sign_in", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/users/profile", resp.Header().Get("Location"))
	assert.NotNil(t, sessionCookie(resp))

	form.Set("password", "nope-nope")
	req = httptest.NewRequest(http.MethodPost, "/users/sign_in", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "page=sign_in")
	assert.Contains(t, resp.Body.String(), MsgInvalidCredentials)
}

func TestHandle_SignInRateLimitedAfterFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	store := ratelimit.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	limiter := ratelimit.NewLimiter(store, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {Max: 2, Window: 15 * time.Minute, FailuresOnly: true},
	})
	router := newTestRouter(t, env, WithLimiter(limiter))

	ok := map[string]string{"email": "a@x.com", "password": "pw123456"}
	bad := map[string]string{"email": "a@x.com", "password": "wrong-pass"}

	assert.Equal(t, http.StatusOK, postJSON(t, router, "/users/sign_in", ok).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(t, router, "/users/sign_in", bad).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, router, "/users/sign_in", ok).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(t, router, "/users/sign_in", bad).Code)

	resp := postJSON(t, router, "/users/sign_in", ok)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
}

func TestHandle_Logout(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@x.com", "pw123456")
	router := newTestRouter(t, env)

	req := httptest.NewRequest(http.MethodGet, "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: tokengenerator.SessionCookieName, Value: res.Token})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "/", resp.Header().Get("Location"))
	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/logout", nil))
	assert.Equal(t, "/users/sign_in", resp.Header().Get("Location"))
}

func TestHandle_ForgotPasswordSameResponse(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	router := newTestRouter(t, env)

	known := postJSON(t, router, "/users/auth/forgot-password", map[string]string{"email": "a@x.com"})
	ghost := postJSON(t, router, "/users/auth/forgot-password", map[string]string{"email": "ghost@x.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, ghost.Code)
	assert.JSONEq(t, known.Body.String(), ghost.Body.String())
}

func TestHandle_ForgotPasswordRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	store := ratelimit.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	limiter := ratelimit.NewLimiter(store, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassForgotPassword: {Max: 3, Window: time.Hour},
	})
	router := newTestRouter(t, env, WithLimiter(limiter))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, postJSON(t, router, "/users/auth/forgot-password", map[string]string{"email": "a@x.com"}).Code)
	}
	resp := postJSON(t, router, "/users/auth/forgot-password", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Len(t, env.mailer.Sent(), 3, "no mail dispatched once limited")
}

func TestHandle_ResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "pw123456")
	router := newTestRouter(t, env)

	require.NoError(t, env.service.RequestPasswordReset(t.Context(), "a@x.com"))
	token := env.lastResetToken(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/resetPassword/"+token, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "page=reset_password")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/resetPassword/deadbeef", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "page=reset_invalid")

	resp = postJSON(t, router, "/users/resetPassword/"+token, map[string]string{"password": "resetpw12", "confirmPassword": "resetpw12"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotNil(t, sessionCookie(resp))

	resp = postJSON(t, router, "/users/resetPassword/"+token, map[string]string{"password": "resetpw12", "confirmPassword": "resetpw12"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, MsgResetTokenInvalid, decodeBody(t, resp)["message"])
}
