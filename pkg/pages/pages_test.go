package pages

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/legendboard/pkg/login"
)

func TestRenderer_ImplementsPageRenderer(t *testing.T) {
	var _ login.PageRenderer = (*Renderer)(nil)
}

func TestRender_AllPages(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			r.Render(resp, http.StatusOK, name, map[string]interface{}{
				"Prefix": "/users",
				"User":   login.Principal{Name: "Ann", Email: "a@x.com", HasPassword: true},
			})
			assert.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header().Get("Content-Type"))
			assert.Contains(t, resp.Body.String(), "<!DOCTYPE html>")
			assert.NotContains(t, resp.Body.String(), "<no value>")
		})
	}
}

func TestRender_Data(t *testing.T) {
	r, err := New(WithGoogle(true))
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.Render(resp, http.StatusUnauthorized, login.PageSignIn, map[string]interface{}{
		"Prefix": "/users",
		"Email":  `a"b@x.com`,
		"Error":  "Email or password is incorrect <script>",
	})
	body := resp.Body.String()
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, body, `action="/users/sign_in"`)
	assert.Contains(t, body, `href="/users/google"`)
	assert.Contains(t, body, "Email or password is incorrect &lt;script&gt;")
	assert.Contains(t, body, `value="a&#34;b@x.com"`)

	resp = httptest.NewRecorder()
	r.Render(resp, http.StatusOK, login.PageResetPassword, map[string]interface{}{"Prefix": "/users", "Token": "abc123"})
	assert.Contains(t, resp.Body.String(), `action="/users/resetPassword/abc123"`)
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.Render(resp, http.StatusOK, "nope", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRender_GoogleHidden(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.Render(resp, http.StatusOK, login.PageSignIn, map[string]interface{}{"Prefix": "/users"})
	assert.NotContains(t, resp.Body.String(), "/users/google")
}
