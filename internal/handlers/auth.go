package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/types"
)

// AuthService is the authentication use-case set served over HTTP.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, types.Role, error)
	ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error
	Authorize(ctx context.Context, token string, required types.Role) (auth.Identity, error)
}

// AuthHandler provides login and password change endpoints.
type AuthHandler struct {
	service AuthService
	metrics Metrics
	logger  logrus.FieldLogger
}

func NewAuthHandler(service AuthService, metrics Metrics, logger logrus.FieldLogger) *AuthHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AuthHandler{service: service, metrics: metrics, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, service AuthService, metrics Metrics, logger logrus.FieldLogger) {
	handler := NewAuthHandler(service, metrics, logger)

	r.Post("/login", handler.Login)
	r.With(RequireRole(service, types.RoleViewer, logger)).Post("/change_password", handler.ChangePassword)
}

// RequireRole rejects requests without a valid bearer token carrying at
// least the required role, and stores the caller's identity in the
// request context.
func RequireRole(authorizer AuthService, required types.Role, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if errors.Is(err, errMissingAuthorization) {
				writeError(w, http.StatusUnauthorized, "Missing Authorization Header")
				return
			}
			if err != nil {
				writeServiceError(w, r, logger, services.ErrUnauthorized)
				return
			}

			identity, err := authorizer.Authorize(r.Context(), token, required)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Login verifies credentials and returns a token together with the role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, role, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.ObserveLogin("invalid")
		} else {
			h.metrics.ObserveLogin("error")
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.metrics.ObserveLogin("success")
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Role: role})
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing Authorization Header")
		return
	}

	var req ChangePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password updated", nil)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	Role  types.Role `json:"role"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

var (
	errMissingAuthorization = errors.New("missing authorization")
	errInvalidAuthorization = errors.New("invalid authorization")
)

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errInvalidAuthorization
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthorization
	}
	return token, nil
}
