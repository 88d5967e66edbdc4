package handlers

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/nssnepal/membership/internal/services"
)

// GET /users?filter=pending|approved|all
func UsersList(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")
		switch filter {
		case "pending", "approved", "all":
		default:
			filter = "pending"
		}
		users, counts, err := services.ListUsers(conn(r), filter)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "users/list.tmpl", map[string]any{
			"Title":  "User Approval",
			"Users":  users,
			"Filter": filter,
			"Counts": counts,
		})
	}
}

// POST /users  (action=bulk_approve|bulk_unapprove, user_ids=...)
func UsersBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	back := "/users"
	if f := r.FormValue("filter"); f != "" {
		back += "?filter=" + f
	}
	ids := formIDs(r, "user_ids")
	if len(ids) == 0 {
		http.Redirect(w, r, withFlash(back, "info", okText["nothing_marked"]), http.StatusSeeOther)
		return
	}

	me := CurrentUser(r)
	switch r.FormValue("action") {
	case "bulk_approve":
		n, err := services.BulkApprove(conn(r), ids, me.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		slog.Info("users approved", "count", n, "by", me.Username)
		redirectFlash(w, r, back, "ok", fmt.Sprintf("%d user(s) approved successfully.", n))
	case "bulk_unapprove":
		n, err := services.BulkUnapprove(conn(r), ids)
		if err != nil {
			internalError(w, r, err)
			return
		}
		slog.Info("users unapproved", "count", n, "by", me.Username)
		redirectFlash(w, r, back, "warn", fmt.Sprintf("%d user(s) unapproved.", n))
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

// GET /users/{id}
func UserDetail(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		u, err := services.GetUser(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "users/show.tmpl", map[string]any{
			"Title": "User " + u.Username,
			"User":  u,
		})
	}
}

// POST /users/{id}/approve
func UserApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	u, changed, err := services.Approve(conn(r), id, CurrentUser(r).ID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if !changed {
		redirectFlash(w, r, "/users", "info", fmt.Sprintf("User %s is already approved.", u.Username))
		return
	}
	slog.Info("user approved", "user", u.Username, "by", CurrentUser(r).Username)
	redirectFlash(w, r, "/users", "ok", fmt.Sprintf("User %s has been approved.", u.Username))
}

// POST /users/{id}/unapprove
func UserUnapprove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	u, changed, err := services.Unapprove(conn(r), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if !changed {
		redirectFlash(w, r, "/users", "info", fmt.Sprintf("User %s is already unapproved.", u.Username))
		return
	}
	slog.Info("user unapproved", "user", u.Username, "by", CurrentUser(r).Username)
	redirectFlash(w, r, "/users", "warn", fmt.Sprintf("User %s has been unapproved.", u.Username))
}
