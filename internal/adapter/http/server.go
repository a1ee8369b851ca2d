// Package http exposes the forecast data service over HTTP: health and
// metrics endpoints plus the thin query boundary around the in-memory core.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/query"
)

// ForecastQuerier answers the three filtered forecast queries.
type ForecastQuerier interface {
	ByCountry(countryID int64, f query.Filter) ([]domain.ForecastRecord, error)
	ByGrid(gridIDs []int64, f query.Filter) ([]domain.ForecastRecord, error)
	ByMonth(monthID domain.MonthID, countryID *int64, metrics domain.MetricSelection) ([]domain.ForecastRecord, error)
}

// DataProvider exposes the store's catalog, summary, and refresh operations.
type DataProvider interface {
	Ready() bool
	Countries() ([]domain.Country, error)
	Info() (domain.Info, error)
	Load(ctx context.Context) error
}

// Server routes HTTP traffic to the query engine and data store.
type Server struct {
	httpServer *http.Server
	engine     ForecastQuerier
	data       DataProvider
	logger     *slog.Logger
}

// NewServer creates the HTTP server with health, metrics, and API routes.
func NewServer(addr string, engine ForecastQuerier, data DataProvider, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		data:   data,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.handleInfo)
		r.Get("/countries", s.handleCountries)
		r.Get("/forecasts/country/{countryID}", s.handleByCountry)
		r.Get("/forecasts/grid", s.handleByGrid)
		r.Get("/forecasts/month/{monthID}", s.handleByMonth)
		r.Post("/admin/refresh", s.handleRefresh)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.data.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "data store has not completed its first load",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.data.Info()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.data.Countries()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleByCountry(w http.ResponseWriter, r *http.Request) {
	countryID, err := int64Param(r, "countryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.engine.ByCountry(countryID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newForecastResponse(records))
}

func (s *Server) handleByGrid(w http.ResponseWriter, r *http.Request) {
	gridIDs, err := gridIDsParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.engine.ByGrid(gridIDs, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newForecastResponse(records))
}

func (s *Server) handleByMonth(w http.ResponseWriter, r *http.Request) {
	monthID, err := int64Param(r, "monthID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	countryID, err := optionalInt64Query(r, "country_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.engine.ByMonth(domain.MonthID(monthID), countryID, parseMetricSelection(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newForecastResponse(records))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.data.Load(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.data.Info()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// writeError maps domain errors to HTTP statuses and renders the structured
// error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unknownCountry *domain.UnknownCountryError
		unknownGrid    *domain.UnknownGridError
		invalidFilter  *domain.InvalidFilterError
	)

	switch {
	case errors.As(err, &unknownCountry):
		writeJSON(w, http.StatusNotFound, errorBody("unknown_country", err.Error(), map[string]any{
			"country_id": unknownCountry.CountryID,
		}))
	case errors.As(err, &unknownGrid):
		writeJSON(w, http.StatusNotFound, errorBody("unknown_grid", err.Error(), map[string]any{
			"grid_ids": unknownGrid.GridIDs,
		}))
	case errors.As(err, &invalidFilter):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_filter", err.Error(), nil))
	case errors.Is(err, domain.ErrRefreshInProgress):
		writeJSON(w, http.StatusConflict, errorBody("refresh_in_progress", err.Error(), nil))
	case errors.Is(err, domain.ErrDataUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("data_unavailable", err.Error(), nil))
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal server error", nil))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
