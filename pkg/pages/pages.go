// Package pages renders the HTML forms behind the sign-in, sign-up,
// password reset and profile flows from templates embedded in the binary.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Names of the pages; each has a templates/<name>.html file.
var Names = []string{"sign_in", "sign_up", "forgot_password", "reset_password", "reset_invalid", "profile"}

type Renderer struct {
	templates     map[string]*template.Template
	googleEnabled bool
}

type Option func(*Renderer)

// WithGoogle shows the Google sign-in links.
func WithGoogle(enabled bool) Option {
	return func(r *Renderer) { r.googleEnabled = enabled }
}

func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(Names))}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range Names {
		t, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render writes page with status. Unknown pages and template errors give 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data map[string]interface{}) {
	t, ok := r.templates[page]
	if !ok {
		slog.Error("Unknown page", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view := map[string]interface{}{
		"Prefix": "", "Email": "", "Name": "", "Token": "", "Error": "", "Notice": "",
	}
	for k, v := range data {
		view[k] = v
	}
	view["GoogleEnabled"] = r.googleEnabled

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		slog.Error("Failed rendering page", "page", page, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
