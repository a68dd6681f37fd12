// Package web provides the HTTP server and handlers for contact uploads.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/contactload/internal/config"
	"github.com/JonMunkholm/contactload/internal/core"
	"github.com/JonMunkholm/contactload/internal/results"
	mw "github.com/JonMunkholm/contactload/internal/web/middleware"
)

// UploadIDHeader carries the ID under which an upload result is cached.
const UploadIDHeader = "X-Upload-ID"

// HealthMessage is the body of GET /.
const HealthMessage = "Health Check YES!"

// ContactLister lists stored contacts.
type ContactLister interface {
	List(ctx context.Context, limit, offset int) ([]core.Contact, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Service  *core.Service
	Contacts ContactLister
	Results  results.Store
	Limiter  *core.UploadLimiter

	// Metrics is mounted at cfg.Metrics.Path when set and enabled.
	Metrics http.Handler
}

// Server is the HTTP server for the contact loader.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	contacts ContactLister
	results  results.Store
	limiter  *core.UploadLimiter
	metrics  http.Handler
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if deps.Results == nil {
		deps.Results = results.NewMemory(cfg.Results.TTL)
	}

	s := &Server{
		cfg:      cfg,
		service:  deps.Service,
		contacts: deps.Contacts,
		results:  deps.Results,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Security.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{UploadIDHeader},
		MaxAge:         300,
	}))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleHealth)

	s.router.Route("/upload", func(r chi.Router) {
		r.Post("/raw", s.handleUploadRaw)
		r.Post("/name", s.handleUploadName)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/contacts", s.handleListContacts)
		r.Get("/upload/status", s.handleUploadQueueStatus)
		r.Get("/upload/{uploadID}/result", s.handleUploadResult)
	})

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics)
	}
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
