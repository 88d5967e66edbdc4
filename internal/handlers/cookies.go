// internal/handlers/cookies.go
package handlers

import (
	"net/http"
	"time"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/models"
)

const sessionCookieName = "nss_session"

func setSessionCookie(w http.ResponseWriter, s models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   config.Conf.GetBool("secureCookies"),
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
