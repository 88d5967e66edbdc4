package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

type ctxKey int

const userKey ctxKey = iota

// Paths the approval gate never blocks.
var publicPrefixes = []string{
	"/login",
	"/register",
	"/logout",
	"/static/",
	"/pending",
	"/healthz",
	"/metrics",
}

// CurrentUser is the signed-in user, or nil.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, u))
}

// LoadUser resolves the session cookie into the request's user. A stale or
// unknown token is cleared and the request continues anonymously.
func LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := services.SessionUser(conn(r), token)
		switch {
		case err == nil:
			r = withUser(r, &u)
		case errors.Is(err, services.ErrNotFound):
			clearSessionCookie(w)
		default:
			internalError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin is middleware: blocks access unless logged in
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff lets only staff and superusers through.
func RequireStaff(next http.Handler) http.Handler {
	return RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r).IsElevated() {
			http.Redirect(w, r, "/?error=staff_only", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// ApprovalGate keeps signed-in but unapproved accounts on the pending page.
// Anonymous requests pass through; RequireLogin deals with them.
func ApprovalGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		u := CurrentUser(r)
		if u == nil || u.IsElevated() || services.IsApproved(*u) {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/pending?warn=pending_approval", http.StatusSeeOther)
	})
}

func isPublicPath(p string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// GET /login
func LoginForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		render(w, r, t, "auth/login.tmpl", map[string]any{
			"Title": "Login",
			"Next":  r.URL.Query().Get("next"),
		})
	}
}

// POST /login
func LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := safeNext(r.FormValue("next"))

	u, err := services.Authenticate(conn(r), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		slog.Warn("login failed", "username", strings.TrimSpace(r.FormValue("username")), "ip", r.RemoteAddr)
		http.Redirect(w, r, "/login?error=invalid_login&next="+url.QueryEscape(next), http.StatusSeeOther)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	s, err := services.CreateSession(conn(r), u.ID, config.Conf.GetDuration("sessionTTL"))
	if err != nil {
		internalError(w, r, err)
		return
	}
	setSessionCookie(w, s)
	slog.Info("login", "user_id", u.ID, "username", u.Username)

	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	redirectFlash(w, r, next, "ok", fmt.Sprintf("Welcome back, %s!", name))
}

// POST /logout
func Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := services.DeleteSession(conn(r), token); err != nil {
			slog.Warn("logout: delete session", "err", err)
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login?info="+url.QueryEscape("You have been logged out."), http.StatusSeeOther)
}

// GET /register
func RegisterForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		render(w, r, t, "auth/register.tmpl", map[string]any{
			"Title": "Register",
			"Form":  services.RegisterInput{},
		})
	}
}

// POST /register
func RegisterSubmit(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in := services.RegisterInput{
			Username:  strings.TrimSpace(r.FormValue("username")),
			Email:     strings.TrimSpace(r.FormValue("email")),
			FirstName: strings.TrimSpace(r.FormValue("first_name")),
			LastName:  strings.TrimSpace(r.FormValue("last_name")),
			Password:  r.FormValue("password1"),
			Password2: r.FormValue("password2"),
		}
		u, err := services.Register(conn(r), in)
		if fields, general, ok := formErrors(err); ok {
			in.Password, in.Password2 = "", ""
			render(w, r, t, "auth/register.tmpl", map[string]any{
				"Title":          "Register",
				"Form":           in,
				"Errors":         fields,
				"NonFieldErrors": general,
				"Flash":          MakeFlash(r, "Registration failed. Please check the form.", ""),
			})
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}

		s, err := services.CreateSession(conn(r), u.ID, config.Conf.GetDuration("sessionTTL"))
		if err != nil {
			internalError(w, r, err)
			return
		}
		setSessionCookie(w, s)
		slog.Info("registered", "user_id", u.ID, "username", u.Username)
		http.Redirect(w, r, "/pending?ok=registered", http.StatusSeeOther)
	}
}

// GET /pending
func Pending(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, t, "auth/pending.tmpl", map[string]any{"Title": "Pending Approval"})
	}
}
