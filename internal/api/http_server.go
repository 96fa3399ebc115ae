package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rentals/internal/config"
	"rentals/internal/domain"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the HTTP adapter calls into.
type Services struct {
	Catalog   domain.CatalogService
	Bookings  domain.BookingService
	Reviews   domain.ReviewService
	Favorites domain.FavoriteService
	Users     domain.UserService
	Health    Pinger
}

// HTTPServer exposes the rental API over HTTP.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	auth    *Authenticator
	limiter *rateLimiter
	logger  *zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		auth:    NewAuthenticator(cfg.Auth, svc.Users, logger),
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}

	router := srv.routes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           corsHandler.Handler(srv.limiter.Wrap(router)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return srv
}

func (s *HTTPServer) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(s.logger), recoverMiddleware(s.logger))

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/system-date", s.handleSystemDate).Methods(http.MethodGet)

	// Каталог открыт без авторизации
	router.HandleFunc("/property", s.handleSearch).Methods(http.MethodGet)
	router.HandleFunc("/property/{id}", s.handleGetProperty).Methods(http.MethodGet)
	router.HandleFunc("/property/{id}/availability", s.handleAvailability).Methods(http.MethodGet)
	router.HandleFunc("/property/{id}/price", s.handlePrice).Methods(http.MethodGet)
	router.HandleFunc("/property/{id}/rate", s.handleRate).Methods(http.MethodPost)
	router.HandleFunc("/properties/count", s.handleCount).Methods(http.MethodGet)
	router.HandleFunc("/images/{id}/{index:[0-9]+}", s.handleImage).Methods(http.MethodGet)

	authed := router.NewRoute().Subrouter()
	authed.Use(s.auth.Require)

	authed.HandleFunc("/property", s.handleCreateProperty).Methods(http.MethodPost)
	authed.HandleFunc("/NewProperty", s.handleCreateProperty).Methods(http.MethodPost)
	authed.HandleFunc("/properties/{id}", s.handleUpdateProperty).Methods(http.MethodPut)
	authed.HandleFunc("/properties/{id}", s.handleDeleteProperty).Methods(http.MethodDelete)
	authed.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	authed.HandleFunc("/admin/properties", s.handleSearch).Methods(http.MethodGet)

	authed.HandleFunc("/property/{id}/review", s.handleReview).Methods(http.MethodPost)
	authed.HandleFunc("/property/{id}/reviews/{reviewId}/helpful", s.handleHelpful).Methods(http.MethodPost)
	authed.HandleFunc("/review/{id}/helpful", s.handleHelpfulByReview).Methods(http.MethodPost)

	authed.HandleFunc("/property/{id}/favorite", s.handleToggleFavorite).Methods(http.MethodPost)
	authed.HandleFunc("/favorites", s.handleFavorites).Methods(http.MethodGet)

	authed.HandleFunc("/property/{id}/book", s.handleBook).Methods(http.MethodPost)
	authed.HandleFunc("/bookings", s.handleBookings).Methods(http.MethodGet)
	authed.HandleFunc("/bookings/user", s.handleUserBookings).Methods(http.MethodGet)
	authed.HandleFunc("/bookings/property/{propertyId}", s.handlePropertyBookings).Methods(http.MethodGet)
	authed.HandleFunc("/bookings/{id}/status", s.handleBookingStatus).Methods(http.MethodPut)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Health.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleSystemDate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"currentDate": time.Now().UTC()})
}
