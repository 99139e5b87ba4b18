// Package web exposes the attendance core over HTTP for the kiosk frontend
// and the admin panel.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/web/handlers"
	"github.com/user-aditi/face-attendance-system/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	service    *attendance.Service
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
}

// NewServer creates a new web server. imageDir is the default reference image
// directory for gallery rebuilds; embedder turns uploaded frames into vectors.
func NewServer(service *attendance.Service, embedder handlers.FaceEmbedder, imageDir string, host string, port int) *Server {
	r := chi.NewRouter()

	s := &Server{
		service:    service,
		router:     r,
		jobManager: handlers.NewJobManager(),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(embedder, imageDir)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
