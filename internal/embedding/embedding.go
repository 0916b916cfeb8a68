// Package embedding turns text units into vectors through a langchaingo embedder,
// keeping the provider inside its input size and rate limits.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/embeddings"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

// Client embeds document units (throttled) and query terms (cached).
type Client struct {
	embedder  embeddings.Embedder
	limiter   *Limiter
	maxChars  int
	cooldown  time.Duration
	retries   uint64
	timeout   time.Duration
	dimension int
	cache     *lru.Cache[string, []float32]
}

// NewClient wraps embedder. dimension, when positive, is enforced on every vector.
func NewClient(embedder embeddings.Embedder, cfg *config.EmbeddingConfig, dimension int) (*Client, error) {
	if embedder == nil {
		return nil, errors.New("embedding: nil embedder")
	}
	c := &Client{
		embedder:  embedder,
		limiter:   NewLimiter(cfg.CallDelay),
		maxChars:  cfg.MaxChars,
		cooldown:  cfg.RateLimitCooldown,
		timeout:   cfg.Timeout,
		dimension: dimension,
	}
	if c.cooldown <= 0 {
		c.cooldown = time.Millisecond
	}
	if cfg.RateLimitRetries > 0 {
		c.retries = uint64(cfg.RateLimitRetries)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

// Prepare collapses whitespace and truncates text to the character budget.
func (c *Client) Prepare(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if c.maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= c.maxChars {
		return text
	}
	return string(runes[:c.maxChars])
}

// Embed embeds one document unit. Calls are spaced by the configured delay. A rate-limit
// response pauses the client for the cooldown and retries the same unit; once retries
// run out the error wraps models.ErrRateLimited. Any other failure wraps
// models.ErrEmbeddingProvider.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, true, func(ctx context.Context, input string) ([]float32, error) {
		vectors, err := c.embedder.EmbedDocuments(ctx, []string{input})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("%w: expected 1 vector, got %d", models.ErrEmbeddingProvider, len(vectors))
		}
		return vectors[0], nil
	})
}

// EmbedQuery embeds a search term, serving repeated terms from the cache.
func (c *Client) EmbedQuery(ctx context.Context, term string) ([]float32, error) {
	key := c.Prepare(term)
	if c.cache != nil {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
	}
	vec, err := c.embed(ctx, term, false, c.embedder.EmbedQuery)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(key, vec)
	}
	return vec, nil
}

func (c *Client) embed(ctx context.Context, text string, throttle bool, call func(context.Context, string) ([]float32, error)) ([]float32, error) {
	input := c.Prepare(text)
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", models.ErrEmbeddingProvider)
	}

	var vec []float32
	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.cooldown))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if throttle {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := c.call(ctx, call, input)
		if throttle {
			c.limiter.Done()
		}
		if err != nil {
			if errors.Is(err, models.ErrEmbeddingProvider) {
				return err
			}
			if IsRateLimit(err) {
				log.Warn().Err(err).Dur("cooldown", c.cooldown).Msg("Embedding provider rate limited")
				c.limiter.Cooldown(c.cooldown)
				return retry.RetryableError(fmt.Errorf("%w: %w", models.ErrRateLimited, err))
			}
			return fmt.Errorf("%w: %w", models.ErrEmbeddingProvider, err)
		}
		vec = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", models.ErrEmbeddingProvider)
	}
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: vector has %d dimensions, want %d", models.ErrEmbeddingProvider, len(vec), c.dimension)
	}
	return vec, nil
}

func (c *Client) call(ctx context.Context, call func(context.Context, string) ([]float32, error), input string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return call(ctx, input)
}

// IsRateLimit reports whether err looks like a provider quota rejection (HTTP 429 or
// the gRPC RESOURCE_EXHAUSTED status).
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource_exhausted", "rate limit", "too many requests", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
