package config

import (
	"os"
	"time"

	"catalog-rag/internal/models"
)

const (
	DefaultTable     = "catalogo_embeddings"
	DefaultIndex     = "idx_catalogo_embedding"
	DefaultDimension = 768

	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

func applyDefaults(cfg *Config) {
	db := &cfg.Database
	if db.Driver == "" {
		db.Driver = "postgres"
	}
	if db.DSN == "" {
		db.DSN = os.Getenv("DATABASE_URL")
	}
	if db.Table == "" {
		db.Table = DefaultTable
	}
	if db.Index == "" {
		db.Index = DefaultIndex
	}
	if db.Dimension == 0 {
		db.Dimension = DefaultDimension
	}
	if cfg.Chromem.Path == "" {
		cfg.Chromem.Path = "./chromemdb"
	}

	applyLLMDefaults(&cfg.EmbedLLM, "googleai", "text-embedding-004", "GOOGLE_API_KEY")
	applyLLMDefaults(&cfg.RouterLLM, "openai", "llama-3.1-8b-instant", "GROQ_API_KEY")
	applyLLMDefaults(&cfg.ChatLLM, "openai", "llama-3.1-8b-instant", "GROQ_API_KEY")
	if cfg.RouterLLM.Provider == "openai" && cfg.RouterLLM.BaseURL == "" {
		cfg.RouterLLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.ChatLLM.Provider == "openai" && cfg.ChatLLM.BaseURL == "" {
		cfg.ChatLLM.BaseURL = "https://api.groq.com/openai/v1"
	}

	l := &cfg.Layout
	if l.ShadowDistance == 0 {
		l.ShadowDistance = 1.5
	}
	if l.LineTolerance == 0 {
		l.LineTolerance = 5
	}
	if l.SpaceGap == 0 {
		l.SpaceGap = 5
	}
	if l.MinPageChars == 0 {
		l.MinPageChars = 20
	}

	r := &cfg.RAG
	if r.Policy == "" {
		r.Policy = "page"
	}
	if r.ChunkSize == 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ChunkOverlap == 0 {
		r.ChunkOverlap = defaultChunkOverlap
	}
	if r.MinChunkChars == 0 {
		r.MinChunkChars = 50
	}

	e := &cfg.Embedding
	if e.MaxChars == 0 {
		e.MaxChars = 8000
	}
	if e.CallDelay == 0 {
		e.CallDelay = 1500 * time.Millisecond
	}
	if e.RateLimitCooldown == 0 {
		e.RateLimitCooldown = 10 * time.Second
	}
	if e.RateLimitRetries == 0 {
		e.RateLimitRetries = 3
	}
	if e.CacheSize == 0 {
		e.CacheSize = 256
	}
	if e.Timeout == 0 {
		e.Timeout = 30 * time.Second
	}

	ret := &cfg.Retrieval
	if ret.TopK == 0 {
		ret.TopK = 5
	}
	if ret.IndexTopK == 0 {
		ret.IndexTopK = 3
	}
	if ret.IndexPages == nil {
		ret.IndexPages = []int{4, 5}
	}
	if ret.MaxResultChars == 0 {
		ret.MaxResultChars = 1000
	}
	if ret.IndexPattern == "" {
		ret.IndexPattern = models.IndexRegex
	}

	if cfg.Router.History == 0 {
		cfg.Router.History = 3
	}
	if cfg.Router.RefusalMarkers == nil {
		cfg.Router.RefusalMarkers = []string{"LO SIENTO"}
	}
	if cfg.Router.Timeout == 0 {
		cfg.Router.Timeout = 20 * time.Second
	}
	if cfg.Chat.History == 0 {
		cfg.Chat.History = 4
	}
	if cfg.Chat.CatalogURL == "" {
		cfg.Chat.CatalogURL = "https://sysvencol.com/Catalogo.pdf"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
}

func applyLLMDefaults(c *LLMConfig, provider, model, keyEnv string) {
	if c.Provider == "" {
		c.Provider = provider
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.Key == "" {
		c.Key = os.Getenv(keyEnv)
	}
}
