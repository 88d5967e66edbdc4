package handlers

import (
	"net/http"
	"time"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/services"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// today is the current calendar day in the association's timezone.
func today() time.Time {
	return membership.Day(timeNow().In(config.Location()))
}

// queryDate reads a YYYY-MM-DD style query parameter; nil when absent or unparseable.
func queryDate(r *http.Request, key string) *time.Time {
	d, ok := services.ParseDate(r.URL.Query().Get(key))
	if !ok {
		return nil
	}
	return &d
}

// queryWindow reads ?from=&to= falling back to the given defaults.
func queryWindow(r *http.Request, defFrom, defTo time.Time) (time.Time, time.Time) {
	from, to := defFrom, defTo
	if d := queryDate(r, "from"); d != nil {
		from = *d
	}
	if d := queryDate(r, "to"); d != nil {
		to = *d
	}
	return from, to
}
