package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

type scriptedLLM struct {
	chunks []string
	err    error
	got    []llms.MessageContent
}

func (s *scriptedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.got = messages
	if s.err != nil {
		return nil, s.err
	}
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	full := ""
	for _, c := range s.chunks {
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
		full += c
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full}}}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestToMessageContent(t *testing.T) {
	got := ToMessageContent("sys", []models.Message{
		{Role: "user", Content: "hola"},
		{Role: "assistant", Content: "buenas"},
	})
	require.Len(t, got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, got[2].Role)
	assert.Equal(t, llms.TextContent{Text: "hola"}, got[1].Parts[0])

	assert.Len(t, ToMessageContent("", []models.Message{{Role: "user", Content: "x"}}), 1)
}

func TestStreamContent(t *testing.T) {
	llm := &scriptedLLM{chunks: []string{"Hola", ", ", "mundo"}}
	var streamed []string
	full, err := StreamContent(context.Background(), llm, nil, func(s string) error {
		streamed = append(streamed, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola, mundo", full)
	assert.Equal(t, []string{"Hola", ", ", "mundo"}, streamed)
}

func TestGenerateContent_Errors(t *testing.T) {
	_, err := GenerateContent(context.Background(), &scriptedLLM{err: errors.New("boom")}, nil)
	assert.Error(t, err)
}

func TestLast(t *testing.T) {
	msgs := []models.Message{{Content: "1"}, {Content: "2"}, {Content: "3"}, {Content: "4"}}
	assert.Equal(t, msgs[1:], Last(msgs, 3))
	assert.Equal(t, msgs, Last(msgs, 10))
	assert.Equal(t, msgs, Last(msgs, 0))
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), &config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), &config.LLMConfig{Provider: "googleai", BaseURL: "http://x"})
	assert.Error(t, err)
}

func TestNewProvider_Ollama(t *testing.T) {
	p, err := NewProvider(context.Background(), &config.LLMConfig{Provider: "ollama", Model: "nomic-embed-text", BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
