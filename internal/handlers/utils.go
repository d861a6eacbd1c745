package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/observability"
	"github.com/weatherlogger/apiserver/internal/services"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextIdentityKey contextKey = "identity"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// MessageResponse is the body of every non-collection response.
type MessageResponse struct {
	Msg string `json:"msg"`
	ID  any    `json:"id,omitempty"`
}

// Metrics receives the business counters recorded by the handlers.
type Metrics interface {
	ObserveLogin(outcome string)
	ObserveMeasurementRejection(reason string)
}

var (
	_ AuthService        = (*services.AuthService)(nil)
	_ SeriesService      = (*services.SeriesService)(nil)
	_ MeasurementService = (*services.MeasurementService)(nil)
)

type nopMetrics struct{}

func (nopMetrics) ObserveLogin(string)                {}
func (nopMetrics) ObserveMeasurementRejection(string) {}

func withIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(auth.Identity)
	return identity, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeMessage(w http.ResponseWriter, status int, message string, id any) {
	writeJSON(w, status, MessageResponse{Msg: message, ID: id})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Msg: message})
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.New("invalid request body")
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "iscolor":
		return fmt.Errorf("%s must be a color", fe.Field())
	case "min":
		return fmt.Errorf("%s must not be empty", fe.Field())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}

// writeServiceError maps service errors to responses. Anything unexpected
// is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	var (
		weak       *auth.WeakPasswordError
		outOfRange *services.OutOfRangeError
	)

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admins only")
	case errors.Is(err, services.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "Wrong old password")
	case errors.As(err, &weak):
		writeError(w, http.StatusBadRequest, weak.Reason)
	case errors.As(err, &outOfRange):
		writeError(w, http.StatusBadRequest, outOfRange.Error())
	case errors.Is(err, services.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "min_value must not exceed max_value")
	case errors.Is(err, services.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, "Series not found")
	case errors.Is(err, services.ErrMeasurementNotFound):
		writeError(w, http.StatusNotFound, "Measurement not found")
	default:
		observability.LogEntry(r, logger).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
