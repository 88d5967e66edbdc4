package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

var expiryStatuses = []models.Choice{
	{Value: services.BucketExpired, Label: "Expired"},
	{Value: services.BucketThisMonth, Label: "Expiring This Month"},
	{Value: services.BucketNextMonth, Label: "Expiring Next Month"},
	{Value: services.BucketLater, Label: "Expiring Later"},
}

// GET /reports/revenue?from=&to=
func RevenueReport(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := today()
		defFrom, defTo := services.DefaultRevenueWindow(day)
		from, to := queryWindow(r, defFrom, defTo)
		rep, err := services.BuildRevenueReport(conn(r), from, to)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "reports/revenue.tmpl", map[string]any{
			"Title":  "Revenue Report",
			"Report": rep,
		})
	}
}

// GET /reports/renewal-required
func RenewalReport(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := today()
		rep, err := services.BuildRenewalReport(conn(r), day)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "reports/renewal.tmpl", map[string]any{
			"Title":  "Renewal Required",
			"Report": rep,
			"Today":  day,
		})
	}
}

// GET /reports/membership-expiry?status=
func ExpiryReport(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		if !models.Valid(expiryStatuses, status) {
			status = ""
		}
		day := today()
		rep, err := services.BuildExpiryReport(conn(r), day, status)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "reports/expiry.tmpl", map[string]any{
			"Title":    "Membership Expiry",
			"Report":   rep,
			"Statuses": expiryStatuses,
			"Today":    day,
		})
	}
}

// GET /reports/new-members?from=&to=&type=
func NewMembersReport(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := today()
		defFrom, defTo := services.DefaultNewMembersWindow(day)
		from, to := queryWindow(r, defFrom, defTo)
		typ := strings.TrimSpace(r.URL.Query().Get("type"))
		if !models.Valid(models.MembershipTypes, typ) {
			typ = ""
		}
		rep, err := services.BuildNewMembersReport(conn(r), from, to, day, typ)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "reports/new_members.tmpl", map[string]any{
			"Title":  "New Members",
			"Report": rep,
			"Types":  models.MembershipTypes,
		})
	}
}
