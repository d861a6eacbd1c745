package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RequestLogger returns chi middleware that writes one access log line per
// request through logger.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&requestLogFormatter{logger: logger})
}

type requestLogFormatter struct {
	logger logrus.FieldLogger
}

func (f *requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["request_id"] = reqID
	}
	return &requestLogEntry{entry: f.logger.WithFields(fields)}
}

type requestLogEntry struct {
	entry *logrus.Entry
}

func (e *requestLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	entry := e.entry.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})
	switch {
	case status >= http.StatusInternalServerError:
		entry.Error("request completed")
	case status >= http.StatusBadRequest:
		entry.Warn("request completed")
	default:
		entry.Info("request completed")
	}
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.entry.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("request panicked")
}

// LogEntry returns the logger attached to r by RequestLogger, with the
// request fields already set.
func LogEntry(r *http.Request, fallback logrus.FieldLogger) logrus.FieldLogger {
	if entry, ok := middleware.GetLogEntry(r).(*requestLogEntry); ok {
		return entry.entry
	}
	return fallback
}
