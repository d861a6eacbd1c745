package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherlogger/apiserver/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("series_id", 3).Info("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, float64(3), line["series_id"])

	fallback := NewLogger(config.LogConfig{Level: "loud", Format: "text"}, &buf)
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, fallback.Formatter)
}

func TestRequestLoggerWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)

	var handlerEntry logrus.FieldLogger
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Post("/api/series", func(w http.ResponseWriter, r *http.Request) {
		handlerEntry = LogEntry(r, nil)
		w.WriteHeader(http.StatusForbidden)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/series", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/api/series", line["path"])
	assert.Equal(t, float64(http.StatusForbidden), line["status"])
	assert.NotEmpty(t, line["request_id"])
	assert.NotNil(t, handlerEntry)
}
