package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

// Provider is a langchaingo client usable both for generation and for embeddings.
type Provider interface {
	llms.Model
	embeddings.EmbedderClient
}

// NewProvider builds the client named by llmConfig.Provider.
func NewProvider(ctx context.Context, llmConfig *config.LLMConfig) (Provider, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating LLM client")

	switch llmConfig.Provider {
	case "googleai", "google", "":
		if llmConfig.BaseURL != "" {
			return nil, fmt.Errorf("googleai does not support custom API URL")
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
			googleai.WithDefaultEmbeddingModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case "openai", "groq":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", llmConfig.Provider)
	}
}

// NewEmbedder wraps the configured provider in a langchaingo embedder.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	provider, err := NewProvider(ctx, llmConfig)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(provider, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

// ToMessageContent converts conversation turns into langchaingo messages, prefixed by system.
func ToMessageContent(system string, messages []models.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages)+1)
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range messages {
		content = append(content, llms.TextParts(roleType(m.Role), m.Content))
	}
	return content
}

func roleType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// GenerateContent runs one non-streaming completion and returns the first choice.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	res, err := llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return res.Choices[0].Content, nil
}

// StreamContent runs a completion, handing each chunk to onChunk as it arrives.
func StreamContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, onChunk func(string) error, options ...llms.CallOption) (string, error) {
	options = append(options, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if onChunk == nil || len(chunk) == 0 {
			return nil
		}
		return onChunk(string(chunk))
	}))
	return GenerateContent(ctx, llm, messages, options...)
}

// Last returns the trailing n messages.
func Last(messages []models.Message, n int) []models.Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
