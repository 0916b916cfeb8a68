// Package rag answers catalog questions: it routes the turn, assembles retrieval
// context and streams the chat model's reply.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"catalog-rag/internal/config"
	"catalog-rag/internal/llmservice"
	"catalog-rag/internal/models"
	"catalog-rag/internal/router"
)

type Router interface {
	Route(ctx context.Context, messages []models.Message) router.Decision
}

type Service struct {
	router      Router
	assembler   *ContextAssembler
	llm         llms.Model
	prompt      string
	catalogURL  string
	history     int
	temperature float64
}

// NewService fails when the chat prompt does not take exactly two %s operands,
// the catalog URL and the context.
func NewService(r Router, assembler *ContextAssembler, llm llms.Model, chatConfig *config.ChatConfig) (*Service, error) {
	prompt := chatConfig.Prompt
	if prompt == "" {
		prompt = models.ChatPromptTemplate
	}
	if strings.Contains(fmt.Sprintf(prompt, "", ""), "%!") {
		return nil, fmt.Errorf("chat prompt must take exactly two %%s operands (catalog url, context)")
	}
	return &Service{
		router:      r,
		assembler:   assembler,
		llm:         llm,
		prompt:      prompt,
		catalogURL:  chatConfig.CatalogURL,
		history:     chatConfig.History,
		temperature: chatConfig.Temperature,
	}, nil
}

// Validate rejects conversations without a non-empty user turn.
func Validate(messages []models.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: no messages", models.ErrBadRequest)
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no user message", models.ErrBadRequest)
}

// Context routes the conversation and returns the decision with its retrieval context.
func (s *Service) Context(ctx context.Context, messages []models.Message) (router.Decision, string) {
	d := s.router.Route(ctx, messages)
	return d, s.assembler.Assemble(ctx, d, s.assembler.TopK(d))
}

// Answer runs the full pipeline. onChunk, when set, receives the reply as it streams.
// Query is the router decision, Source the context the model saw.
func (s *Service) Answer(ctx context.Context, messages []models.Message, onChunk func(string) error) (*models.PromptResponse, error) {
	if err := Validate(messages); err != nil {
		return nil, err
	}

	d, contextText := s.Context(ctx, messages)
	system := fmt.Sprintf(s.prompt, s.catalogURL, orEmpty(contextText))

	var opts []llms.CallOption
	if s.temperature > 0 {
		opts = append(opts, llms.WithTemperature(s.temperature))
	}
	content := llmservice.ToMessageContent(system, llmservice.Last(messages, s.history))
	reply, err := llmservice.StreamContent(ctx, s.llm, content, onChunk, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	log.Debug().Str("decision", d.String()).Int("context_chars", len(contextText)).Msg("Answer generated")

	return &models.PromptResponse{
		Query:   d.String(),
		Source:  contextText,
		Content: reply,
	}, nil
}

func orEmpty(contextText string) string {
	if contextText == "" {
		return models.EmptyContext
	}
	return contextText
}
