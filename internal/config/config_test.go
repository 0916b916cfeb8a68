package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.Layout.ShadowDistance)
	assert.Equal(t, 5.0, cfg.Layout.LineTolerance)
	assert.Equal(t, 20, cfg.Layout.MinPageChars)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 8000, cfg.Embedding.MaxChars)
	assert.Equal(t, 1500*time.Millisecond, cfg.Embedding.CallDelay)
	assert.Equal(t, 10*time.Second, cfg.Embedding.RateLimitCooldown)
	assert.Equal(t, DefaultDimension, cfg.Database.Dimension)
	assert.Equal(t, []int{4, 5}, cfg.Retrieval.IndexPages)
	assert.Equal(t, 3, cfg.Retrieval.IndexTopK)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "page", cfg.RAG.Policy)
}

func TestLoadConfig_ExpandsEnvAndParsesDurations(t *testing.T) {
	t.Setenv("CATALOG_TEST_KEY", "secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  driver: chromem
  table: v2
embed_llm:
  provider: ollama
  key: ${CATALOG_TEST_KEY}
embedding:
  call_delay: 1s
rag:
  policy: window
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "chromem", cfg.Database.Driver)
	assert.Equal(t, "v2", cfg.Database.Table)
	assert.Equal(t, "secret", cfg.EmbedLLM.Key)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, time.Second, cfg.Embedding.CallDelay)
	assert.Equal(t, "window", cfg.RAG.Policy)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unterminated"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
