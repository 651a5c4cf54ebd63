package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// ReadyzHandler fails when the database stops answering pings.
func ReadyzHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeErrorFull(w, http.StatusServiceUnavailable, "database unavailable", "not_ready", true)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
