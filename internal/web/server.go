package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

const sessionPruneInterval = time.Hour

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	Auth        *spotifyauth.Authenticator
	TemplatesFS fs.FS
	StaticFS    fs.FS

	// Catalogs defaults to SpotifyCatalog(Auth, Logger).
	Catalogs    CatalogFunc
	Preferences BackendFunc
	Classifier  *mood.Classifier
	Engine      []recommend.Option
	Users       UserStore           // optional
	Gatherer    prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	Logger      *zap.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions *SessionStore
	handlers *Handlers
	logger   *zap.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Preferences == nil {
		return nil, errors.New("preferences backend is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = mood.NewClassifier(mood.WithLogger(cfg.Logger))
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Catalogs == nil {
		if cfg.Auth == nil {
			return nil, errors.New("either an authenticator or a catalog factory is required")
		}
		cfg.Catalogs = SpotifyCatalog(cfg.Auth, cfg.Logger)
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	sessions := NewSessionStore()

	handlers := &Handlers{
		auth:       cfg.Auth,
		sessions:   sessions,
		templates:  templates,
		catalogs:   cfg.Catalogs,
		backends:   cfg.Preferences,
		classifier: cfg.Classifier,
		engineOpts: cfg.Engine,
		users:      cfg.Users,
		logger:     cfg.Logger,
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: sessions,
		handlers: handlers,
		logger:   cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS, cfg.Gatherer)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS, gatherer prometheus.Gatherer) {
	h := s.handlers

	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Pages
	s.router.Get("/", h.Home)

	// Auth routes
	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)

	// HTMX fragments
	s.router.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Post("/recommendations", h.RecommendFragment)
		r.Post("/refresh", h.RefreshFragment)
		r.Post("/tracks/{track}/{action}", h.FeedbackFragment)
	})

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/moods", h.Moods)
		r.Post("/detect", h.Detect)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/recommendations", h.Recommendations)
			r.Post("/refresh", h.Refresh)
			r.Get("/tracks", h.Tracks)
			r.Post("/tracks/{track}/{action}", h.Feedback)
			r.Get("/tracks/{track}/features", h.TrackFeatures)
			r.Get("/profile", h.Profile)
			r.Post("/playlist", h.SavePlaylist)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("url", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			if n := s.sessions.Prune(); n > 0 {
				s.logger.Debug("pruned expired sessions", zap.Int("count", n))
			}
			continue
		case <-stop:
			s.logger.Info("shutting down server")
		}
		break
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
