// Package chunker splits reconstructed pages into retrieval units.
//
// Two policies exist. PagePolicy keeps one chunk per page and preserves the real page
// number for citations. WindowPolicy slides a fixed character window over the whole
// document; its page numbers are synthesized from the window offset
// (floor(start/chunkSize)+1) and do not correspond to document pages.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

const (
	PolicyPage   = "page"
	PolicyWindow = "window"

	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 100  // characters
	defaultMinChars     = 50
)

type Chunker interface {
	Chunk(pages []models.PageText) []models.Chunk
}

// New returns the chunker for cfg.Policy.
func New(cfg *config.RAGConfig) (Chunker, error) {
	if cfg == nil {
		return PagePolicy{}, nil
	}
	switch cfg.Policy {
	case PolicyPage, "":
		return PagePolicy{}, nil
	case PolicyWindow:
		return NewWindowPolicy(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkChars), nil
	default:
		return nil, fmt.Errorf("unknown chunking policy: %s", cfg.Policy)
	}
}

// PagePolicy emits each page as exactly one chunk. Length filtering already happened
// during layout reconstruction; truncation happens in the embedder.
type PagePolicy struct{}

func (PagePolicy) Chunk(pages []models.PageText) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(pages))
	for _, p := range pages {
		content := strings.TrimSpace(p.Text)
		if content == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{PageNumber: p.PageNumber, ChunkID: 1, Content: content})
	}
	return chunks
}

type WindowPolicy struct {
	size     int
	overlap  int
	minChars int
}

func NewWindowPolicy(size, overlap, minChars int) WindowPolicy {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	return WindowPolicy{size: size, overlap: overlap, minChars: minChars}
}

// Chunk joins all pages with newlines and emits a window every size-overlap characters.
func (w WindowPolicy) Chunk(pages []models.PageText) []models.Chunk {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return w.ChunkText(strings.Join(texts, "\n"))
}

// ChunkText windows over runes so multi-byte characters are never split.
func (w WindowPolicy) ChunkText(text string) []models.Chunk {
	runes := []rune(text)
	var chunks []models.Chunk
	step := w.size - w.overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+w.size, len(runes))
		content := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(content) <= w.minChars {
			continue
		}
		chunks = append(chunks, models.Chunk{
			PageNumber: start/w.size + 1,
			ChunkID:    len(chunks) + 1,
			Content:    content,
		})
	}
	return chunks
}
