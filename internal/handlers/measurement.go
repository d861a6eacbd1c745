package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/types"
)

// MeasurementService is the measurement use-case set served over HTTP.
type MeasurementService interface {
	Query(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error)
	Add(ctx context.Context, m types.Measurement) (types.Measurement, error)
	Update(ctx context.Context, id int64, patch types.MeasurementPatch) (types.Measurement, error)
	Delete(ctx context.Context, id int64) error
}

// MeasurementHandler provides HTTP handlers for measurements.
type MeasurementHandler struct {
	service MeasurementService
	metrics Metrics
	logger  logrus.FieldLogger
}

func NewMeasurementHandler(service MeasurementService, metrics Metrics, logger logrus.FieldLogger) *MeasurementHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &MeasurementHandler{service: service, metrics: metrics, logger: logger}
}

// MeasurementRouter registers measurement routes. Reads are public; writes
// go through requireAdmin.
func MeasurementRouter(r chi.Router, service MeasurementService, requireAdmin func(http.Handler) http.Handler, metrics Metrics, logger logrus.FieldLogger) {
	handler := NewMeasurementHandler(service, metrics, logger)

	r.Get("/", handler.QueryMeasurements)
	r.With(requireAdmin).Post("/", handler.AddMeasurement)
	r.With(requireAdmin).Put("/{measurementID}", handler.UpdateMeasurement)
	r.With(requireAdmin).Delete("/{measurementID}", handler.DeleteMeasurement)
}

// QueryMeasurements answers with an empty list, never an error, when the
// query string cannot be understood.
func (h *MeasurementHandler) QueryMeasurements(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseMeasurementFilter(r.URL.Query())
	if !ok {
		writeJSON(w, http.StatusOK, []types.Measurement{})
		return
	}

	measurements, err := h.service.Query(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, measurements)
}

func (h *MeasurementHandler) AddMeasurement(w http.ResponseWriter, r *http.Request) {
	var req AddMeasurementRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.metrics.ObserveMeasurementRejection("invalid_request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if *req.SeriesID < 1 || *req.SeriesID > math.MaxInt32 {
		h.metrics.ObserveMeasurementRejection("series_not_found")
		writeError(w, http.StatusNotFound, "Series not found")
		return
	}

	m := types.Measurement{SeriesID: *req.SeriesID, Value: *req.Value}
	if req.Timestamp != nil {
		ts, err := parseTimestamp(*req.Timestamp)
		if err != nil {
			h.metrics.ObserveMeasurementRejection("invalid_request")
			writeError(w, http.StatusBadRequest, "timestamp is invalid")
			return
		}
		m.Timestamp = ts
	}

	created, err := h.service.Add(r.Context(), m)
	if err != nil {
		h.observeRejection(err)
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Measurement added", created.ID)
}

func (h *MeasurementHandler) UpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := measurementIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Measurement not found")
		return
	}

	var req UpdateMeasurementRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.metrics.ObserveMeasurementRejection("invalid_request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := types.MeasurementPatch{Value: req.Value}
	if req.Timestamp != nil {
		ts, err := parseTimestamp(*req.Timestamp)
		if err != nil {
			h.metrics.ObserveMeasurementRejection("invalid_request")
			writeError(w, http.StatusBadRequest, "timestamp is invalid")
			return
		}
		patch.Timestamp = &ts
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.observeRejection(err)
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Measurement updated", updated.ID)
}

func (h *MeasurementHandler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := measurementIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Measurement not found")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Measurement deleted", id)
}

func (h *MeasurementHandler) observeRejection(err error) {
	var outOfRange *services.OutOfRangeError
	switch {
	case errors.As(err, &outOfRange):
		h.metrics.ObserveMeasurementRejection("out_of_range")
	case errors.Is(err, services.ErrSeriesNotFound):
		h.metrics.ObserveMeasurementRejection("series_not_found")
	}
}

type AddMeasurementRequest struct {
	SeriesID  *int     `json:"series_id" validate:"required"`
	Value     *float64 `json:"value" validate:"required"`
	Timestamp *string  `json:"timestamp"`
}

// UpdateMeasurementRequest carries a partial update; absent fields are nil.
type UpdateMeasurementRequest struct {
	Value     *float64 `json:"value"`
	Timestamp *string  `json:"timestamp"`
}

// parseMeasurementFilter reads series_id (comma separated), from and to.
// It reports false when series_id is missing or any part of the query is
// malformed. Ids too large for the series key match nothing and are dropped.
func parseMeasurementFilter(q url.Values) (types.MeasurementFilter, bool) {
	raw := q.Get("series_id")
	if raw == "" {
		return types.MeasurementFilter{}, false
	}

	var filter types.MeasurementFilter
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if errors.Is(err, strconv.ErrRange) {
			continue
		}
		if err != nil {
			return types.MeasurementFilter{}, false
		}
		filter.SeriesIDs = append(filter.SeriesIDs, int(id))
	}
	if len(filter.SeriesIDs) == 0 {
		return types.MeasurementFilter{}, false
	}

	bounds := []struct {
		key string
		dst **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	}
	for _, b := range bounds {
		value := q.Get(b.key)
		if value == "" {
			continue
		}
		ts, err := parseTimestamp(value)
		if err != nil {
			return types.MeasurementFilter{}, false
		}
		*b.dst = &ts
	}

	return filter, true
}

func measurementIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "measurementID"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
