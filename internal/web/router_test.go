package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/db"
	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

// newTestApp points the shared handle at a fresh database and builds the router.
func newTestApp(t *testing.T, csrfOn bool) http.Handler {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "web.db"), true)
	require.NoError(t, err)
	db.Use(gdb)

	config.Conf.Set("csrf", csrfOn)
	t.Cleanup(func() { config.Conf.Set("csrf", true) })
	return Router()
}

func do(h http.Handler, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) *http.Cookie {
	t.Helper()
	rec := do(h, http.MethodPost, "/login", url.Values{"username": {username}, "password": {password}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "nss_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie after login as %s", username)
	return nil
}

func mustStaff(t *testing.T) {
	t.Helper()
	_, err := services.CreateSuperuser(db.Conn(), "admin", "admin@nss.org.np", "admin-pass-1")
	require.NoError(t, err)
}

func mustRegister(t *testing.T, username string) models.User {
	t.Helper()
	u, err := services.Register(db.Conn(), services.RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "clerk-pass-1",
		Password2: "clerk-pass-1",
	})
	require.NoError(t, err)
	return u
}

func TestRouterHealthz(t *testing.T) {
	h := newTestApp(t, false)
	rec := do(h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))

	rec = do(h, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nss_http_requests_total")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	h := newTestApp(t, false)
	rec := do(h, http.MethodGet, "/members", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fmembers", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in")
}

func TestLoginFailureRedirectsWithError(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)
	rec := do(h, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?error=invalid_login"))
}

func TestRegisteredUserWaitsForApproval(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)

	rec := do(h, http.MethodPost, "/register", url.Values{
		"username":  {"clerk"},
		"email":     {"clerk@example.com"},
		"password1": {"clerk-pass-1"},
		"password2": {"clerk-pass-1"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pending?ok=registered", rec.Header().Get("Location"))

	clerk := login(t, h, "clerk", "clerk-pass-1")
	rec = do(h, http.MethodGet, "/members", nil, clerk)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pending?warn=pending_approval", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/pending", nil, clerk)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Staff approves; the clerk gets in but still cannot manage users.
	admin := login(t, h, "admin", "admin-pass-1")
	u, err := services.Authenticate(db.Conn(), "clerk", "clerk-pass-1")
	require.NoError(t, err)
	rec = do(h, http.MethodPost, fmt.Sprintf("/users/%d/approve", u.ID), url.Values{}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/users?ok=")

	rec = do(h, http.MethodGet, "/members", nil, clerk)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodGet, "/users", nil, clerk)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=staff_only", rec.Header().Get("Location"))
}

func TestBulkApprove(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)
	a := mustRegister(t, "clerk1")
	b := mustRegister(t, "clerk2")
	admin := login(t, h, "admin", "admin-pass-1")

	rec := do(h, http.MethodPost, "/users", url.Values{
		"action":   {"bulk_approve"},
		"user_ids": {fmt.Sprint(a.ID), fmt.Sprint(b.ID)},
		"filter":   {"pending"},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/users?filter=pending&ok=")

	_, counts, err := services.ListUsers(db.Conn(), "all")
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts.Pending)
}

func TestLogoutEndsSession(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)
	admin := login(t, h, "admin", "admin-pass-1")

	rec := do(h, http.MethodPost, "/logout", url.Values{}, admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(h, http.MethodGet, "/", nil, admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}

func TestCSRFRejectsTokenlessPost(t *testing.T) {
	h := newTestApp(t, true)
	rec := do(h, http.MethodPost, "/login", url.Values{"username": {"x"}, "password": {"y"}}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="gorilla.csrf.Token"`)
}

func TestMemberAndPaymentFlow(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)
	admin := login(t, h, "admin", "admin-pass-1")

	fee, err := services.CreateFee(db.Conn(), services.FeeInput{
		MembershipType: models.TypeRegular, PaymentFrequency: models.FreqAnnual, Amount: 1500, IsActive: true,
	})
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/members", url.Values{
		"name":               {"Sita Sharma"},
		"phone":              {"9812345678"},
		"email":              {"sita@example.com"},
		"address":            {"Lalitpur"},
		"father_name":        {"Hari Sharma"},
		"citizenship_number": {"CIT-100"},
		"membership_type":    {models.TypeRegular},
		"payment_frequency":  {models.FreqAnnual},
		"join_date":          {"2024-01-15"},
		"is_active":          {"on"},
		"child_name":         {"Asha", ""},
		"child_dob":          {"2015-05-01", ""},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/members/"), loc)

	var m models.Member
	require.NoError(t, db.Conn().Preload("Children").First(&m).Error)
	assert.Equal(t, "+9779812345678", m.Phone)
	assert.Len(t, m.Children, 1)

	rec = do(h, http.MethodPost, "/payments", url.Values{
		"member":         {fmt.Sprint(m.ID)},
		"membership_fee": {fmt.Sprint(fee.ID)},
		"payment_date":   {"2024-06-30"},
		"payment_mode":   {models.ModeCash},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Location"), "/receipt?ok=")

	var p models.Payment
	require.NoError(t, db.Conn().First(&p).Error)
	assert.InDelta(t, 1500, p.Amount, 0.001)

	// A missing member re-renders the form with an inline error.
	rec = do(h, http.MethodPost, "/payments", url.Values{
		"membership_fee": {fmt.Sprint(fee.ID)},
		"payment_date":   {"2024-06-30"},
		"payment_mode":   {models.ModeCash},
	}, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "text-danger")
}

func TestPagesRender(t *testing.T) {
	h := newTestApp(t, false)
	mustStaff(t)
	clerk := mustRegister(t, "clerk")
	admin := login(t, h, "admin", "admin-pass-1")

	gdb := db.Conn()
	fee, err := services.CreateFee(gdb, services.FeeInput{
		MembershipType: models.TypeRegular, PaymentFrequency: models.FreqAnnual, Amount: 1200, IsActive: true,
	})
	require.NoError(t, err)
	m, err := services.CreateMember(gdb, services.MemberInput{
		Name:              "Ram Thapa",
		Phone:             "+9779801234567",
		Email:             "ram@example.com",
		Address:           "Kathmandu",
		FatherName:        "Krishna Thapa",
		CitizenshipNumber: "CIT-200",
		MembershipType:    models.TypeRegular,
		PaymentFrequency:  models.FreqAnnual,
		JoinDate:          time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		IsActive:          true,
	}, []services.ChildInput{{Name: "Maya"}})
	require.NoError(t, err)
	p, err := services.RecordPayment(gdb, services.PaymentInput{
		MemberID:        m.ID,
		MembershipFeeID: fee.ID,
		PaymentDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentMode:     models.ModeBankTransfer,
	})
	require.NoError(t, err)

	pages := []string{
		"/",
		"/members",
		"/members?q=Ram&type=REGULAR&status=active",
		"/members/new",
		fmt.Sprintf("/members/%d", m.ID),
		fmt.Sprintf("/members/%d/edit", m.ID),
		fmt.Sprintf("/members/%d/delete", m.ID),
		"/members/import",
		"/members/import/template",
		"/members/export.csv",
		"/fees",
		"/fees/new",
		fmt.Sprintf("/fees/%d/edit", fee.ID),
		fmt.Sprintf("/fees/%d/delete", fee.ID),
		"/fees.json",
		"/payments",
		"/payments?payment_mode=BANK_TRANSFER&start_date=2024-01-01&end_date=2024-12-31",
		"/payments/new",
		fmt.Sprintf("/payments/new?member_id=%d", m.ID),
		fmt.Sprintf("/payments/%d/edit", p.ID),
		fmt.Sprintf("/payments/%d/delete", p.ID),
		fmt.Sprintf("/payments/%d/receipt", p.ID),
		fmt.Sprintf("/payments/%d/receipt.png", p.ID),
		"/reports/revenue",
		"/reports/revenue?from=2024-01-01&to=2024-12-31",
		"/reports/renewal-required",
		"/reports/membership-expiry",
		"/reports/membership-expiry?status=expired",
		"/reports/new-members?from=2023-01-01&type=REGULAR",
		"/users",
		"/users?filter=all",
		fmt.Sprintf("/users/%d", clerk.ID),
	}
	for _, path := range pages {
		t.Run(path, func(t *testing.T) {
			rec := do(h, http.MethodGet, path, nil, admin)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}

	rec := do(h, http.MethodGet, "/members/9999", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
