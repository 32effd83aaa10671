// Package sigatest serves a fixture copy of the SIGA student portal for tests.
package sigatest

import (
	"bytes"
	"embed"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

const (
	User     = "12345678900"
	Password = "secret"

	sessionCookie = "ASP.NET_SessionId"
	sessionValue  = "fixture-session"

	rejectedMessage = "Não confere Login e Senha"
)

//go:embed testdata
var files embed.FS

// Fixture returns the contents of testdata/name, it panics if the file does
// not exist.
func Fixture(name string) []byte {
	data, err := files.ReadFile("testdata/" + name)
	if err != nil {
		panic(err)
	}
	return data
}

// Golden is the report a scrape of the fixture portal is expected to produce.
func Golden() []byte {
	return Fixture("report.golden.json")
}

// Portal is a running fixture portal. Logging in with User and Password
// redirects to the home page and sets a session cookie, other pages redirect
// to the login page without it.
type Portal struct {
	server   *httptest.Server
	logins   atomic.Int32
	rejected atomic.Int32
}

// NewPortal starts a portal that is closed when t finishes.
func NewPortal(t testing.TB) *Portal {
	p := &Portal{}
	p.server = httptest.NewServer(p.router())
	t.Cleanup(p.server.Close)
	return p
}

// BaseUrl is the student area of the portal, it ends with a slash.
func (p *Portal) BaseUrl() string {
	return p.server.URL + "/aluno/"
}

// Logins counts successful logins.
func (p *Portal) Logins() int {
	return int(p.logins.Load())
}

// Rejected counts logins with wrong credentials.
func (p *Portal) Rejected() int {
	return int(p.rejected.Load())
}

func (p *Portal) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/aluno", func(r chi.Router) {
		r.Get("/login.aspx", func(w http.ResponseWriter, r *http.Request) {
			writeLogin(w, "")
		})
		r.Post("/login.aspx", p.login)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/home.aspx", page("home.html"))
			r.Get("/faltasparciais.aspx", page("faltasparciais.html"))
			r.Get("/notasparciais.aspx", page("notasparciais.html"))
		})
	})
	return r
}

func (p *Portal) login(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// the portal rejects posts that did not come from its own form
	if r.PostForm.Get("GXState") == "" || !r.PostForm.Has("BTCONFIRMA") {
		http.Error(w, "missing form state", http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("vSIS_USUARIOID") != User || r.PostForm.Get("vSIS_USUARIOSENHA") != Password {
		p.rejected.Add(1)
		writeLogin(w, rejectedMessage)
		return
	}

	p.logins.Add(1)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionValue,
		Path:     "/",
		HttpOnly: true,
	})
	http.Redirect(w, r, "home.aspx", http.StatusSeeOther)
}

func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != sessionValue {
			http.Redirect(w, r, "login.aspx", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func page(name string) http.HandlerFunc {
	body := Fixture(name)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write(body)
	}
}

func writeLogin(w http.ResponseWriter, message string) {
	body := bytes.Replace(Fixture("login.html"), []byte("{{MESSAGE}}"), []byte(message), 1)
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Write(body)
}
