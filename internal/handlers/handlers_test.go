package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/types"
)

const (
	adminToken  = "admin-token"
	viewerToken = "viewer-token"
)

type fakeAuth struct {
	changed    map[int]string
	changeErr  error
	lastUserID int
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, types.Role, error) {
	switch {
	case username == "admin" && password == "Adm1n!pass":
		return adminToken, types.RoleAdmin, nil
	case username == "viewer" && password == "V1ewer!pass":
		return viewerToken, types.RoleViewer, nil
	default:
		return "", "", services.ErrInvalidCredentials
	}
}

func (f *fakeAuth) ChangePassword(_ context.Context, userID int, oldPassword, newPassword string) error {
	f.lastUserID = userID
	if f.changeErr != nil {
		return f.changeErr
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if f.changed == nil {
		f.changed = map[int]string{}
	}
	f.changed[userID] = newPassword
	return nil
}

func (f *fakeAuth) Authorize(_ context.Context, token string, required types.Role) (auth.Identity, error) {
	var identity auth.Identity
	switch token {
	case adminToken:
		identity = auth.Identity{UserID: 1, Role: types.RoleAdmin}
	case viewerToken:
		identity = auth.Identity{UserID: 2, Role: types.RoleViewer}
	default:
		return auth.Identity{}, services.ErrUnauthorized
	}
	if !auth.Satisfies(identity.Role, required) {
		return auth.Identity{}, services.ErrForbidden
	}
	return identity, nil
}

type recordingMetrics struct {
	logins     []string
	rejections []string
}

func (m *recordingMetrics) ObserveLogin(outcome string) { m.logins = append(m.logins, outcome) }
func (m *recordingMetrics) ObserveMeasurementRejection(reason string) {
	m.rejections = append(m.rejections, reason)
}

type testAPI struct {
	router       *chi.Mux
	auth         *fakeAuth
	series       *fakeSeries
	measurements *fakeMeasurements
	metrics      *recordingMetrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger, _ := test.NewNullLogger()
	api := &testAPI{
		router:       chi.NewRouter(),
		auth:         &fakeAuth{},
		series:       newFakeSeries(),
		measurements: &fakeMeasurements{},
		metrics:      &recordingMetrics{},
	}
	api.router.Route("/api", func(r chi.Router) {
		Mount(r, API{
			Auth:         api.auth,
			Series:       api.series,
			Measurements: api.measurements,
			Metrics:      api.metrics,
			Logger:       logger,
		})
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) MessageResponse {
	t.Helper()
	var msg MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	return msg
}
