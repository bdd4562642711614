package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openstats/openstats/internal/auth"
	"github.com/openstats/openstats/internal/config"
	"github.com/openstats/openstats/internal/db"
	"github.com/openstats/openstats/internal/sync"
)

// Server is the HTTP server for the application.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions *SessionStore
	handlers *Handlers
	logger   *log.Logger
}

// NewServer wires the authenticator, token manager, sync engine, and
// handlers onto a router.
func NewServer(cfg *config.Config, database *db.DB, logger *log.Logger) *Server {
	creds := database.Credentials()
	snapshots := database.Snapshots()

	flow := auth.New(creds, cfg.Spotify, logger)
	tokens := auth.NewManager(creds, cfg.Spotify, logger)
	syncer := sync.New(snapshots, logger)
	sessions := NewSessionStore()

	handlers := NewHandlers(flow, tokens, sessions, snapshots, syncer, logger)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: sessions,
		handlers: handlers,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handlers.Home)
	s.router.Get("/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Get("/logout", s.handlers.Logout)
	s.router.Get("/dashboard", s.handlers.Dashboard)

	s.router.Post("/play", s.handlers.Play)
	s.router.Post("/pause", s.handlers.Pause)
	s.router.Post("/next", s.handlers.Next)
	s.router.Post("/previous", s.handlers.Previous)
	s.router.Post("/seek", s.handlers.Seek)
	s.router.Post("/volume", s.handlers.Volume)
	s.router.Get("/current", s.handlers.Current)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt
// signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
