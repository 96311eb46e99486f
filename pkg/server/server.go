package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/cache"
	"github.com/kinograph/kino/pkg/config"
	"github.com/kinograph/kino/pkg/graph"
	"github.com/kinograph/kino/pkg/models"
	"github.com/kinograph/kino/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server represents the HTTP server. It is read-only with respect to both
// backing stores; all writes happen in the population pipeline.
type Server struct {
	config      *config.Config
	store       store.Store
	recommender graph.Recommender
	cache       *cache.ResultCache
	logger      zerolog.Logger
	router      *chi.Mux
	templates   *template.Template
}

// New creates a new server instance. The recommender may be nil, in which
// case the recommendation endpoint reports the feature unavailable.
func New(
	cfg *config.Config,
	st store.Store,
	recommender graph.Recommender,
	resultCache *cache.ResultCache,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		config:      cfg,
		store:       st,
		recommender: recommender,
		cache:       resultCache,
		logger:      logger,
		router:      chi.NewRouter(),
		templates:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	// Browser UI
	s.router.Get("/", s.handleHome)
	s.router.Get("/search", s.handleSearch)

	// Health check
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/movies", s.handleListMovies)
		r.Get("/movies/{id}", s.handleGetMovie)
		r.Get("/recommendations/{userID}", s.handleRecommendations)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if _, err := s.store.Count(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"version": config.Version,
	})
}

// handleVersion returns server version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": config.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, models.ErrorResponse{
		Error: struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		}{
			Message: message,
			Status:  status,
		},
	})
}
