package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/db"
	"github.com/nssnepal/membership/internal/services"
	"github.com/nssnepal/membership/templates"
)

// render clones the shared layouts, adds one page file and executes the
// template the page defines under its own path (e.g. "members/list.tmpl").
func render(w http.ResponseWriter, r *http.Request, t *template.Template, page string, data map[string]any) {
	view, err := t.Clone()
	if err != nil {
		internalError(w, r, err)
		return
	}
	if _, err := view.ParseFS(templates.FS, "pages/"+page); err != nil {
		internalError(w, r, err)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["CurrentUser"] = CurrentUser(r)
	data["CSRFField"] = csrf.TemplateField(r)
	data["Path"] = r.URL.Path
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = MakeFlash(r, "", "")
	}

	// Render to a buffer so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := view.ExecuteTemplate(&buf, page, data); err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// internalError logs err with the request id and answers with a bare 500.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"err", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// conn is the shared database handle bound to the request context.
func conn(r *http.Request) *gorm.DB {
	return db.Conn().WithContext(r.Context())
}

func urlID(r *http.Request, key string) (uint, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// serviceError answers a lookup failure: 404 for missing records, 500 otherwise.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	internalError(w, r, err)
}

// formErrors splits a validation error into inline field messages and the
// non-field messages shown above the form. ok is false for any other error.
func formErrors(err error) (fields map[string]string, general []string, ok bool) {
	ve, isVE := services.AsValidation(err)
	if !isVE {
		return nil, nil, false
	}
	fields = map[string]string{}
	for _, f := range ve.Fields {
		if f.Field == "" {
			general = append(general, f.Error)
			continue
		}
		if _, seen := fields[f.Field]; !seen {
			fields[f.Field] = f.Error
		}
	}
	if len(fields) == 0 && len(general) == 0 {
		general = append(general, ve.Error())
	}
	return fields, general, true
}
