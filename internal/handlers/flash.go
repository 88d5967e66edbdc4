// internal/handlers/flash.go
package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

type Flash struct {
	Kind string // "ok", "info", "warn" or "error"
	Text string
}

// Class is the bootstrap alert variant for the flash kind.
func (f Flash) Class() string {
	switch f.Kind {
	case "error":
		return "danger"
	case "warn":
		return "warning"
	case "info":
		return "info"
	}
	return "success"
}

var okText = map[string]string{
	"saved":          "Saved.",
	"child_saved":    "Child saved.",
	"child_deleted":  "Child deleted.",
	"fee_saved":      "Membership fee structure saved successfully!",
	"fee_deleted":    "Membership fee structure has been deleted.",
	"registered":     "Registration successful! Your account is pending admin approval.",
	"logged_out":     "You have been logged out.",
	"nothing_marked": "No users selected.",
}

var warnText = map[string]string{
	"pending_approval": "Your account is pending admin approval.",
}

var errText = map[string]string{
	"not_found":       "Record not found.",
	"fee_in_use":      "This fee has recorded payments and cannot be deleted.",
	"invalid_login":   "Invalid username or password.",
	"too_many_logins": "Too many login attempts. Please wait a minute and try again.",
	"no_file":         "Please choose a file to import.",
	"import_failed":   "Error importing file.",
	"invalid_child":   "Child name is required.",
	"staff_only":      "You do not have permission to view that page.",
}

// MakeFlash reads query params and/or explicit strings to build a Flash.
// Known keys map to canned text; anything else is shown as given.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()

	for _, kind := range []string{"error", "warn", "info", "ok"} {
		raw := strings.TrimSpace(q.Get(kind))
		if raw == "" {
			continue
		}
		key := strings.ToLower(raw)
		var known map[string]string
		switch kind {
		case "error":
			known = errText
		case "warn":
			known = warnText
		case "ok":
			known = okText
		}
		if t, ok := known[key]; ok {
			return &Flash{Kind: kind, Text: t}
		}
		return &Flash{Kind: kind, Text: raw}
	}

	// Fallback to handler-provided messages
	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}

// withFlash appends a flash parameter to a redirect target.
func withFlash(target, kind, text string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + kind + "=" + url.QueryEscape(text)
}

func redirectFlash(w http.ResponseWriter, r *http.Request, target, kind, text string) {
	http.Redirect(w, r, withFlash(target, kind, text), http.StatusSeeOther)
}
