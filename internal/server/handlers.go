package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"catalog-rag/internal/models"
	"catalog-rag/internal/rag"
)

type chatRequest struct {
	Messages []models.Message `json:"messages"`
}

// handleChat streams the assistant reply as plain text. Malformed requests get a 400
// before anything is streamed.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := rag.Validate(req.Messages); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info().Str("message", req.Messages[len(req.Messages)-1].Content).Msg("Chat request")

	flusher, _ := w.(http.Flusher)
	started := false
	onChunk := func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	resp, err := s.answerer.Answer(logger.WithContext(r.Context()), req.Messages, onChunk)
	if err != nil {
		logger.Error().Err(err).Bool("streaming", started).Msg("Chat failed")
		if started {
			return
		}
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrBadRequest) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}
	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, resp.Content)
	}
	logger.Info().Str("decision", resp.Query).Msg("Chat answered")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Error writing response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
