package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
	"catalog-rag/internal/router"
)

// minLineChars is the longest line, in characters, that counts as noise in a detail page.
const minLineChars = 4

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, term string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error)
}

// ContextAssembler runs a router decision against the store and renders the hits
// into the context block handed to the chat model.
type ContextAssembler struct {
	embedder   QueryEmbedder
	store      Searcher
	topK       int
	indexTopK  int
	indexPages map[int]bool
	maxChars   int
	tableLine  *regexp.Regexp
	dotLeader  *regexp.Regexp
}

func NewContextAssembler(embedder QueryEmbedder, store Searcher, retrievalConfig *config.RetrievalConfig) *ContextAssembler {
	pages := make(map[int]bool, len(retrievalConfig.IndexPages))
	for _, p := range retrievalConfig.IndexPages {
		pages[p] = true
	}
	return &ContextAssembler{
		embedder:   embedder,
		store:      store,
		topK:       retrievalConfig.TopK,
		indexTopK:  retrievalConfig.IndexTopK,
		indexPages: pages,
		maxChars:   retrievalConfig.MaxResultChars,
		// Anchored to whole lines: stored page text is collapsed onto a single line,
		// so an unanchored match would discard entire pages.
		tableLine:  regexp.MustCompile(`^\s*(?:` + models.TableDataRegex + `)$`),
		dotLeader:  regexp.MustCompile(models.DotLeaderRegex),
	}
}

// TopK is the number of rows fetched for d: fewer for index queries.
func (a *ContextAssembler) TopK(d router.Decision) int {
	if d.IsIndex() {
		return a.indexTopK
	}
	return a.topK
}

// Assemble returns the context for d, or "" when d is NoSearch or retrieval fails.
func (a *ContextAssembler) Assemble(ctx context.Context, d router.Decision, topK int) string {
	if !d.IsSearch() {
		return ""
	}
	vec, err := a.embedder.EmbedQuery(ctx, d.Term())
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", models.ErrRetrieval, err)).Str("term", d.Term()).Msg("Query embedding failed")
		return ""
	}
	hits, err := a.store.Search(ctx, vec, topK)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", models.ErrRetrieval, err)).Str("term", d.Term()).Msg("Search failed")
		return ""
	}

	parts := make([]string, 0, len(hits))
	pages := make([]int, 0, len(hits))
	for _, hit := range hits {
		if part, ok := a.Format(hit); ok {
			parts = append(parts, part)
			pages = append(pages, hit.PageNumber)
		}
	}
	log.Debug().Str("term", d.Term()).Int("k", topK).Ints("pages", pages).Msg("Context assembled")
	return strings.Join(parts, "\n\n")
}

// Format renders one hit with its page tag. Index pages only lose their dot leaders;
// other pages lose short and purely numeric lines and are cut to the result budget.
// It reports false when nothing is left.
func (a *ContextAssembler) Format(hit models.SearchHit) (string, bool) {
	if a.indexPages[hit.PageNumber] {
		text := collapse(a.dotLeader.ReplaceAllString(hit.Content, " "))
		if text == "" {
			return "", false
		}
		return fmt.Sprintf("[ÍNDICE Pág %d]: %s", hit.PageNumber, text), true
	}

	var kept []string
	for _, line := range strings.Split(hit.Content, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= minLineChars || a.tableLine.MatchString(line+" ") {
			continue
		}
		kept = append(kept, line)
	}
	text := truncate(collapse(strings.Join(kept, " ")), a.maxChars)
	if text == "" {
		return "", false
	}
	return fmt.Sprintf("[Pág %d]: %s", hit.PageNumber, text), true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
