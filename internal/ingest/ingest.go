// Package ingest rebuilds the vector store from a catalog document.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"catalog-rag/internal/chunker"
	"catalog-rag/internal/helper"
	"catalog-rag/internal/layout"
	"catalog-rag/internal/models"
	"catalog-rag/internal/parser"
	"catalog-rag/internal/vectorstore"
)

const (
	StageEmbed  = "embed"
	StageInsert = "insert"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Failure records one chunk that did not make it into the store.
type Failure struct {
	Page    int    `json:"page"`
	Chunk   int    `json:"chunk"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type Report struct {
	RunID    string    `json:"run_id"`
	Pages    int       `json:"pages"`
	Chunks   int       `json:"chunks"`
	Stored   int       `json:"stored"`
	Failures []Failure `json:"failures"`
}

type Ingestor struct {
	reconstructor *layout.Reconstructor
	chunker       chunker.Chunker
	embedder      Embedder
	store         vectorstore.Store
}

// New builds an Ingestor. embedder and store may be nil when only Plan is used.
func New(reconstructor *layout.Reconstructor, c chunker.Chunker, embedder Embedder, store vectorstore.Store) *Ingestor {
	return &Ingestor{
		reconstructor: reconstructor,
		chunker:       c,
		embedder:      embedder,
		store:         store,
	}
}

// Pages reconstructs every page of src, dropping pages without meaningful text.
func (in *Ingestor) Pages(src parser.Source) ([]models.PageText, error) {
	total := src.NumPages()
	pages := make([]models.PageText, 0, total)
	for n := 1; n <= total; n++ {
		page, err := src.Page(n)
		if err != nil {
			if errors.Is(err, models.ErrSourceRead) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: page %d: %w", models.ErrSourceRead, n, err)
		}
		var (
			text models.PageText
			ok   bool
		)
		if page.Positioned() {
			text, ok = in.reconstructor.Reconstruct(n, page.Fragments)
		} else {
			text, ok = in.reconstructor.ReconstructText(n, page.Text)
		}
		if !ok {
			log.Debug().Int("page", n).Msg("Skipping page without content")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Plan reconstructs and chunks src without touching the provider or the store.
func (in *Ingestor) Plan(src parser.Source) ([]models.Chunk, error) {
	pages, err := in.Pages(src)
	if err != nil {
		return nil, err
	}
	return in.chunker.Chunk(pages), nil
}

// Run rebuilds the store from src. The source is read before the schema is dropped.
// Chunks are embedded and inserted one at a time; a chunk that fails either step is
// recorded in the report and skipped. Source, schema and index errors abort the run.
func (in *Ingestor) Run(ctx context.Context, src parser.Source) (*Report, error) {
	if in.embedder == nil || in.store == nil {
		return nil, errors.New("ingest: embedder and store are required")
	}
	runID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("run_id", runID).Logger()
	report := &Report{RunID: runID, Failures: []Failure{}}

	pages, err := in.Pages(src)
	if err != nil {
		return report, err
	}
	chunks := in.chunker.Chunk(pages)
	report.Pages = len(pages)
	report.Chunks = len(chunks)
	logger.Info().Int("pages", report.Pages).Int("chunks", report.Chunks).Msg("Document chunked")

	if err := in.store.CreateSchema(ctx); err != nil {
		return report, err
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		in.storeChunk(ctx, logger, report, chunk)
	}

	if err := in.store.BuildIndex(ctx); err != nil {
		return report, err
	}
	logger.Info().
		Int("stored", report.Stored).
		Int("failed", len(report.Failures)).
		Msg("Ingestion finished")
	return report, nil
}

func (in *Ingestor) storeChunk(ctx context.Context, logger zerolog.Logger, report *Report, chunk models.Chunk) {
	fail := func(stage string, err error) {
		logger.Error().Err(err).
			Int("page", chunk.PageNumber).
			Int("chunk", chunk.ChunkID).
			Str("stage", stage).
			Msg("Skipping chunk")
		report.Failures = append(report.Failures, Failure{
			Page:    chunk.PageNumber,
			Chunk:   chunk.ChunkID,
			Stage:   stage,
			Message: err.Error(),
		})
	}

	vec, err := in.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		fail(StageEmbed, err)
		return
	}
	id, err := in.store.Insert(ctx, chunk.Content, chunk.PageNumber, vec)
	if err != nil {
		fail(StageInsert, err)
		return
	}
	report.Stored++
	logger.Debug().
		Int64("id", id).
		Int("page", chunk.PageNumber).
		Int("chunk", chunk.ChunkID).
		Int("vector_len", len(vec)).
		Msg("Chunk stored")
}
