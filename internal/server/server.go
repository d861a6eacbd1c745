package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/config"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/internal/handlers"
	"github.com/weatherlogger/apiserver/internal/mq"
	"github.com/weatherlogger/apiserver/internal/observability"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
	logger     logrus.FieldLogger
}

// New opens the database and the event broker, wires the services and
// builds the router.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq backend: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := newRouter(cfg, dependencies{
		db:      dbConn,
		events:  mq.NewEventPublisher(broker, cfg.MQ.Topic, logger),
		metrics: observability.NewMetrics(registry),
		logger:  logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		logger:     logger,
	}, nil
}

type dependencies struct {
	db      *sql.DB
	events  services.EventPublisher
	metrics *observability.Metrics
	logger  logrus.FieldLogger
}

func newRouter(cfg config.Config, deps dependencies) *chi.Mux {
	tx := db.NewTransactor(deps.db)
	userRepo := store.NewUserRepository(deps.db)
	seriesRepo := store.NewSeriesRepository(deps.db)
	measurementRepo := store.NewMeasurementRepository(deps.db)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	api := handlers.API{
		Auth:         services.NewAuthService(userRepo, hasher, tokens, tx),
		Series:       services.NewSeriesService(seriesRepo, tx, deps.events),
		Measurements: services.NewMeasurementService(measurementRepo, seriesRepo, tx, deps.events),
		Metrics:      deps.metrics,
		Logger:       deps.logger,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		observability.RequestLogger(deps.logger),
		deps.metrics.Middleware,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)

	router.Get("/healthz", handlers.Healthz(deps.db, deps.logger))
	router.Method(http.MethodGet, "/metrics", deps.metrics.Handler())
	router.Route("/api", func(r chi.Router) {
		handlers.Mount(r, api)
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and the
// database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			s.logger.WithError(closeErr).Warn("close mq backend")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
