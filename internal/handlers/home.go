package handlers

import (
	"html/template"
	"net/http"

	"github.com/nssnepal/membership/internal/services"
)

// GET /
func Dashboard(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := today()
		d, err := services.BuildDashboard(conn(r), day)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "dashboard.tmpl", map[string]any{
			"Title":     "Dashboard",
			"Dashboard": d,
			"Today":     day,
		})
	}
}
