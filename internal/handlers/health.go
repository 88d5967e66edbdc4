package handlers

import (
	"net/http"
)

// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := conn(r).DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		http.Error(w, "db unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
