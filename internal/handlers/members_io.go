package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/services"
)

const maxImportBytes = 10 << 20

// GET /members/import
func MemberImportForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, t, "members/import.tmpl", map[string]any{
			"Title":   "Import Members",
			"Columns": services.ImportColumns,
		})
	}
}

// POST /members/import
func MemberImportSubmit(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			http.Redirect(w, r, "/members/import?error=no_file", http.StatusSeeOther)
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Redirect(w, r, "/members/import?error=no_file", http.StatusSeeOther)
			return
		}
		defer file.Close()

		res, err := services.ImportMembers(conn(r), hdr.Filename, file)
		if err != nil {
			slog.Warn("member import rejected", "file", hdr.Filename, "err", err)
			msg := "Error importing file: " + errors.Cause(err).Error()
			if errors.Is(err, services.ErrUnsupportedFile) {
				msg = err.Error()
			}
			http.Redirect(w, r, withFlash("/members/import", "error", msg), http.StatusSeeOther)
			return
		}
		slog.Info("member import",
			"file", hdr.Filename,
			"imported", res.SuccessCount,
			"skipped", res.SkippedCount,
			"errors", res.ErrorCount,
		)

		flash := &Flash{Kind: "ok", Text: fmt.Sprintf("Successfully imported %d members.", res.SuccessCount)}
		if res.SuccessCount == 0 {
			flash = &Flash{Kind: "warn", Text: "No members were imported."}
		}
		render(w, r, t, "members/import.tmpl", map[string]any{
			"Title":   "Import Members",
			"Columns": services.ImportColumns,
			"Result":  res,
			"Flash":   flash,
		})
	}
}

// GET /members/import/template
func MemberImportTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := services.WriteImportTemplate(&buf); err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=member_import_template.xlsx")
	_, _ = buf.WriteTo(w)
}

// GET /members/export.csv
func MembersCSV(w http.ResponseWriter, r *http.Request) {
	members, err := services.ListMembers(conn(r), memberFilter(r))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	day := today()
	filename := fmt.Sprintf("members-%s.csv", day.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := services.WriteMembersCSV(w, members, day); err != nil {
		slog.Error("members csv", "err", err)
	}
}
