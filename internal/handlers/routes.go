package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/types"
)

// API bundles the use-cases served under /api.
type API struct {
	Auth         AuthService
	Series       SeriesService
	Measurements MeasurementService
	Metrics      Metrics
	Logger       logrus.FieldLogger
}

// Mount registers every /api route on r.
func Mount(r chi.Router, api API) {
	requireAdmin := RequireRole(api.Auth, types.RoleAdmin, api.Logger)

	AuthRouter(r, api.Auth, api.Metrics, api.Logger)
	r.Route("/series", func(r chi.Router) {
		SeriesRouter(r, api.Series, requireAdmin, api.Logger)
	})
	r.Route("/measurements", func(r chi.Router) {
		MeasurementRouter(r, api.Measurements, requireAdmin, api.Metrics, api.Logger)
	})
}
