// Package server exposes the catalog assistant over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

type Answerer interface {
	Answer(ctx context.Context, messages []models.Message, onChunk func(string) error) (*models.PromptResponse, error)
}

type Server struct {
	answerer Answerer
	config   *config.ServerConfig
	server   *http.Server
}

func NewServer(answerer Answerer, cfg *config.ServerConfig) *Server {
	s := &Server{answerer: answerer, config: cfg}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/chat", s.handleChat)
	r.Get("/health", s.handleHealth)
	return r
}

// Start serves until the server is stopped.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
