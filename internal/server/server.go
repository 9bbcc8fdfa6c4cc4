// Package server provides the HTTP REST API for the data autopilot.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/data-autopilot/internal/autopilot"
	"github.com/jonathan/data-autopilot/internal/gallery"
	"github.com/jonathan/data-autopilot/internal/llm"
	"github.com/jonathan/data-autopilot/internal/sandbox"
	"github.com/jonathan/data-autopilot/internal/session"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	Client   llm.Client
	Store    gallery.Store
	Executor *sandbox.Executor
	// Pilot is the autopilot run policy applied to every session. The zero
	// value uses the defaults.
	Pilot autopilot.Options
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	sessions   *session.Manager
	client     llm.Client
	store      gallery.Store
	executor   *sandbox.Executor
	pilot      autopilot.Options
	validator  *validator.Validate
}

// New creates a new server instance. Client and Store may be nil: without a
// client the API runs the deterministic phases only, without a store the
// gallery endpoints report the backend as unavailable.
func New(cfg Config) *Server {
	pilot := cfg.Pilot
	if pilot == (autopilot.Options{}) {
		pilot = autopilot.DefaultOptions()
	}
	s := &Server{
		sessions:  session.NewManager(),
		client:    cfg.Client,
		store:     cfg.Store,
		executor:  cfg.Executor,
		pilot:     pilot,
		validator: validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for autopilot runs
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// routes builds the router with middleware and all endpoints.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/autopilot", s.handleRunAutopilot)
				r.Post("/chat", s.handleChat)
				r.Post("/revert", s.handleRevert)
				r.Get("/charts", s.handleSessionCharts)
			})
		})
		r.Route("/gallery/runs", func(r chi.Router) {
			r.Get("/", s.handleListGalleryRuns)
			r.Get("/{id}", s.handleGetGalleryRun)
			r.Delete("/{id}", s.handleDeleteGalleryRun)
		})
	})

	return r
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}

	log.Println("Server stopped")
	return nil
}

// handleHealth returns a simple health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"sessions": len(s.sessions.List()),
		"model":    s.client != nil,
		"gallery":  s.store != nil,
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
