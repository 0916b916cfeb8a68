// Package router decides per conversation turn whether the catalog must be searched,
// and for what term.
package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"catalog-rag/internal/config"
	"catalog-rag/internal/llmservice"
	"catalog-rag/internal/models"
)

// Decision is either NoSearch (the zero value) or a canonical search term.
type Decision struct {
	term  string
	index bool
}

func NoSearch() Decision {
	return Decision{}
}

var defaultIndexPattern = regexp.MustCompile(models.IndexRegex)

// SearchTerm builds a search decision, classifying the term with the default index pattern.
func SearchTerm(term string) Decision {
	return Decision{term: term, index: defaultIndexPattern.MatchString(term)}
}

func (d Decision) IsSearch() bool { return d.term != "" }

// Term is the canonical search term, empty for NoSearch.
func (d Decision) Term() string { return d.term }

// IsIndex reports whether the term addresses the catalog index.
func (d Decision) IsIndex() bool { return d.index }

func (d Decision) String() string {
	if !d.IsSearch() {
		return models.NoSearchSentinel
	}
	return d.term
}

// Router classifies turns through a language model.
type Router struct {
	llm          llms.Model
	prompt       string
	history      int
	refusals     []string
	indexPattern *regexp.Regexp
	timeout      time.Duration
	verbatim     bool
}

func New(llm llms.Model, routerConfig *config.RouterConfig, retrievalConfig *config.RetrievalConfig) (*Router, error) {
	pattern := retrievalConfig.IndexPattern
	if pattern == "" {
		pattern = models.IndexRegex
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid index pattern: %w", err)
	}
	prompt := routerConfig.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf(models.RouterPromptTemplate, models.IndexTerm, models.NoSearchSentinel, models.NoSearchSentinel)
	}
	refusals := make([]string, 0, len(routerConfig.RefusalMarkers))
	for _, m := range routerConfig.RefusalMarkers {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			refusals = append(refusals, m)
		}
	}
	return &Router{
		llm:          llm,
		prompt:       prompt,
		history:      routerConfig.History,
		refusals:     refusals,
		indexPattern: re,
		timeout:      routerConfig.Timeout,
		verbatim:     routerConfig.Verbatim,
	}, nil
}

// Route classifies the trailing messages. A failed classification falls back to NoSearch.
func (r *Router) Route(ctx context.Context, messages []models.Message) Decision {
	raw, err := r.classify(ctx, messages)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", models.ErrRouterClassification, err)).Msg("Router failed, answering without context")
		return NoSearch()
	}
	d := r.Parse(raw)
	log.Debug().Str("raw", raw).Str("decision", d.String()).Bool("index", d.IsIndex()).Msg("Router decision")
	return d
}

func (r *Router) classify(ctx context.Context, messages []models.Message) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	content := llmservice.ToMessageContent(r.prompt, llmservice.Last(messages, r.history))
	return llmservice.GenerateContent(ctx, r.llm, content, llms.WithTemperature(0))
}

// Parse turns raw classifier output into a Decision. The output is trimmed and
// uppercased; unless the router is verbatim it is also stripped of surrounding
// quotes and punctuation and its inner whitespace collapsed, so "Packer." becomes
// PACKER and "..." becomes NoSearch. Empty output, the NO_SEARCH sentinel anywhere
// in it, or a refusal marker yield NoSearch.
func (r *Router) Parse(raw string) Decision {
	term := strings.ToUpper(strings.TrimSpace(raw))
	if !r.verbatim {
		term = strings.Trim(term, " \t\r\n\"'`.,;:!¡¿?*")
		term = strings.Join(strings.Fields(term), " ")
	}
	if term == "" || strings.Contains(term, models.NoSearchSentinel) {
		return NoSearch()
	}
	for _, m := range r.refusals {
		if strings.Contains(term, m) {
			return NoSearch()
		}
	}
	return Decision{term: term, index: r.indexPattern.MatchString(term)}
}
