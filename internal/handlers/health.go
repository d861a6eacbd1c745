package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/internal/observability"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz reports 200 while the database answers a ping and 503 otherwise.
func Healthz(db Pinger, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			observability.LogEntry(r, logger).WithError(err).Warn("database ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
