// Package api exposes the guest and panel JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"restobook/internal/audit"
	"restobook/internal/clock"
	"restobook/internal/models"
	"restobook/internal/repository"
	"restobook/internal/service"
)

// Options configures the HTTP server.
type Options struct {
	Addr           string
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	// Location is used for dates and times sent without an offset.
	Location *time.Location
	Clock    clock.Clock
	// Audit enables the event trail endpoints when set.
	Audit *audit.Trail
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	svc     *service.RestaurantService
	opts    Options
	limiter *ipLimiter
	logger  zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(svc *service.RestaurantService, opts Options, logger zerolog.Logger) *HTTPServer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}

	s := &HTTPServer{
		svc:     svc,
		opts:    opts,
		limiter: newIPLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst),
		logger:  logger.With().Str("component", "http").Logger(),
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Route("/api/restaurants", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/availability", s.handleAvailability)
			r.Get("/available-dates", s.handleAvailableDates)
			r.Get("/spots", s.handleAvailableSpots)
			r.Get("/spots/{spotID}", s.handleSpotDay)
			r.Post("/reservations", s.handleCreateGuestReservation)
		})
	})

	r.Route("/panel/restaurants/{id}", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Get("/base-info", s.handleBaseInfo)
		r.Put("/base-info", s.handleUpdateBaseInfo)

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", s.handleListReservations)
			r.Post("/", s.handleCreateStaffReservation)
			r.Get("/queue", s.handleQueue)
			r.Get("/export", s.handleExport)
			r.Get("/{reservationID}", s.handleGetReservation)
			r.Put("/{reservationID}", s.handleEditReservation)
			r.Delete("/{reservationID}", s.handleCancelReservation)
			r.Put("/{reservationID}/state", s.handleChangeState)
		})

		r.Get("/spots/{spotID}/reservations", s.handleSpotReservations)
		r.Put("/spots/{spotID}", s.handleUpdateSpot)
		r.Delete("/spots/{spotID}", s.handleDeleteSpot)

		r.Get("/schema", s.handleGetSchema)
		r.Put("/schema", s.handleUpdateSchema)
		r.Post("/floors", s.handleAddFloor)
		r.Delete("/floors/{floorID}", s.handleDeleteFloor)

		if s.opts.Audit != nil {
			r.Get("/events", s.handleEvents)
			r.Get("/events/export", s.handleExportEvents)
		}
	})

	return r
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.opts.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case models.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case models.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "restaurant was modified concurrently, retry the request")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a strict JSON body into out.
func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
