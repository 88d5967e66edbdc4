package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nssnepal/membership/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func serve(h http.Handler, path string, u *models.User) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if u != nil {
		r = withUser(r, u)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func pendingUser() *models.User {
	return &models.User{ID: 1, Username: "pending", Profile: &models.UserProfile{}}
}

func approvedUser() *models.User {
	return &models.User{ID: 2, Username: "clerk", Profile: &models.UserProfile{IsApproved: true}}
}

func staffUser() *models.User {
	return &models.User{ID: 3, Username: "admin", IsStaff: true}
}

func TestApprovalGate(t *testing.T) {
	h := ApprovalGate(okHandler)

	cases := []struct {
		name string
		path string
		user *models.User
		want int
		loc  string
	}{
		{"anonymous passes to login check", "/members", nil, http.StatusTeapot, ""},
		{"pending user is parked", "/members", pendingUser(), http.StatusSeeOther, "/pending?warn=pending_approval"},
		{"pending user may log out", "/logout", pendingUser(), http.StatusTeapot, ""},
		{"pending user sees pending page", "/pending", pendingUser(), http.StatusTeapot, ""},
		{"approved user passes", "/payments", approvedUser(), http.StatusTeapot, ""},
		{"staff bypasses approval", "/users", staffUser(), http.StatusTeapot, ""},
		{"profile-less staff still passes", "/", &models.User{IsSuperuser: true}, http.StatusTeapot, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.path, tc.user)
			assert.Equal(t, tc.want, rec.Code)
			if tc.loc != "" {
				assert.Equal(t, tc.loc, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequireLogin(t *testing.T) {
	rec := serve(RequireLogin(okHandler), "/members?q=sita", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fmembers%3Fq%3Dsita", rec.Header().Get("Location"))

	rec = serve(RequireLogin(okHandler), "/members", approvedUser())
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequireStaff(t *testing.T) {
	rec := serve(RequireStaff(okHandler), "/users", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login?next=")

	rec = serve(RequireStaff(okHandler), "/users", approvedUser())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=staff_only", rec.Header().Get("Location"))

	rec = serve(RequireStaff(okHandler), "/users", staffUser())
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("https://evil.example"))
	assert.Equal(t, "/", safeNext("//evil.example"))
	assert.Equal(t, "/", safeNext(`/\evil.example`))
	assert.Equal(t, "/payments?q=1", safeNext("/payments?q=1"))
}
