package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/types"
)

// SeriesService is the series use-case set served over HTTP.
type SeriesService interface {
	List(ctx context.Context) ([]types.Series, error)
	Create(ctx context.Context, series types.Series) (types.Series, error)
	Update(ctx context.Context, id int, patch types.SeriesPatch) (types.Series, error)
	Delete(ctx context.Context, id int) error
}

// SeriesHandler provides HTTP handlers for series.
type SeriesHandler struct {
	service SeriesService
	logger  logrus.FieldLogger
}

func NewSeriesHandler(service SeriesService, logger logrus.FieldLogger) *SeriesHandler {
	return &SeriesHandler{service: service, logger: logger}
}

// SeriesRouter registers series routes. Reads are public; writes go
// through requireAdmin.
func SeriesRouter(r chi.Router, service SeriesService, requireAdmin func(http.Handler) http.Handler, logger logrus.FieldLogger) {
	handler := NewSeriesHandler(service, logger)

	r.Get("/", handler.ListSeries)
	r.With(requireAdmin).Post("/", handler.CreateSeries)
	r.With(requireAdmin).Put("/{seriesID}", handler.UpdateSeries)
	r.With(requireAdmin).Delete("/{seriesID}", handler.DeleteSeries)
}

func (h *SeriesHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *SeriesHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var req CreateSeriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), types.Series{
		Name:     req.Name,
		Color:    req.Color,
		MinValue: *req.MinValue,
		MaxValue: *req.MaxValue,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Series added", created.ID)
}

func (h *SeriesHandler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := seriesIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Series not found")
		return
	}

	var req UpdateSeriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), id, types.SeriesPatch{
		Name:     req.Name,
		Color:    req.Color,
		MinValue: req.MinValue,
		MaxValue: req.MaxValue,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Series updated", updated.ID)
}

func (h *SeriesHandler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := seriesIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Series not found")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Series deleted", id)
}

// Name and color limits follow the series table columns.
type CreateSeriesRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Color    string   `json:"color" validate:"omitempty,iscolor,max=20"`
	MinValue *float64 `json:"min_value" validate:"required"`
	MaxValue *float64 `json:"max_value" validate:"required"`
}

// UpdateSeriesRequest carries a partial update; absent fields are nil.
type UpdateSeriesRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Color    *string  `json:"color" validate:"omitempty,iscolor,max=20"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
}

// seriesIDParam rejects ids the INTEGER key column can never hold, so they
// read as not found instead of reaching the database.
func seriesIDParam(r *http.Request) (int, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "seriesID"), 10, 32)
	if err != nil || id < 1 {
		return 0, false
	}
	return int(id), true
}
