package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/metrics/export/prometheus"
	"github.com/coursemaster/coursegate/middleware"
)

// Config configures the HTTP surface.
type Config struct {
	Addr string
	// AllowedOrigins lists browser origins allowed to call the API with credentials.
	// Empty disables CORS headers.
	AllowedOrigins []string
	SecureCookies  bool
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// Server exposes an Engine over HTTP.
type Server struct {
	cfg     Config
	engine  *coursegate.Engine
	logger  *slog.Logger
	metrics http.Handler
}

// New returns a Server for engine. A nil logger uses slog.Default.
func New(cfg Config, engine *coursegate.Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		engine:  engine,
		logger:  logger,
		metrics: prometheus.NewPrometheusExporter(engine).Handler(),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID, middleware.Profile(s.cfg.SecureCookies))

		r.Get("/courses", s.handleListCourses)
		r.Get("/courses/featured", s.handleFeaturedCourses)
		r.Get("/courses/{courseId}", s.handleGetCourse)
		r.Get("/categories", s.handleCategories)

		r.Get("/session", s.handleSession)
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(s.engine))

			r.Get("/admin/verify", s.handleChallenge)
			r.Post("/admin/verify", s.handleVerifyPasskey)
			r.Get("/admin", s.handleAdminHome)
			r.Post("/admin/exit", s.handleExitAdmin)
			r.Get("/admin/courses", s.handleAdminListCourses)
			r.Post("/admin/courses", s.handleCreateCourse)
			r.Get("/admin/courses/{courseId}", s.handleCourseDetail)
			r.Put("/admin/courses/{courseId}", s.handleUpdateCourse)
			r.Delete("/admin/courses/{courseId}", s.handleDeleteCourse)

			r.Get("/student", s.handleDashboard)
			r.Get("/instructor", s.handleDashboard)
		})
	})

	if len(s.cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("coursegate: listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("coursegate: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
