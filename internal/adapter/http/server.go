package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

// PlaceService is the place lookup surface served over HTTP.
type PlaceService interface {
	Search(ctx context.Context, query string, limit int) []domain.Coordinate
	ReverseLookup(ctx context.Context, lat, lon float64) (domain.Coordinate, bool)
	ResolveDevicePosition(ctx context.Context) (domain.DevicePosition, bool)
}

// Server exposes the places API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	places     PlaceService
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1 place routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, places PlaceService, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr: addr,
			Handler: otelhttp.NewHandler(mux, "venue-locator",
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				}),
			),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		places:   places,
		validate: validator.New(),
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/places/search", s.handleSearch)
	mux.HandleFunc("GET /v1/places/reverse", s.handleReverse)
	mux.HandleFunc("GET /v1/position", s.handlePosition)

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

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	results := s.places.Search(withPosition(r.Context(), q.Lat, q.Lon), q.Text, q.Limit)
	sharedobs.WriteJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parsePoint(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	q := requiredPointQuery{Lat: lat, Lon: lon}
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	place, ok := s.places.ReverseLookup(r.Context(), *q.Lat, *q.Lon)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "no match"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, reverseResponse{Result: place})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parsePoint(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	q := pointQuery{Lat: lat, Lon: lon}
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	pos, ok := s.places.ResolveDevicePosition(withPosition(r.Context(), q.Lat, q.Lon))
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "position unavailable"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, positionResponse{Position: pos})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg = describe(verrs[0])
	}
	s.logger.Debug("rejected request", "path", r.URL.Path, "error", msg)
	sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

type searchResponse struct {
	Results []domain.Coordinate `json:"results"`
}

type reverseResponse struct {
	Result domain.Coordinate `json:"result"`
}

type positionResponse struct {
	Position domain.DevicePosition `json:"position"`
}

type errorResponse struct {
	Error string `json:"error"`
}
