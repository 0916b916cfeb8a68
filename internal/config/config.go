package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Chromem   ChromemConfig   `yaml:"chromem"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	RouterLLM LLMConfig       `yaml:"router_llm"`
	ChatLLM   LLMConfig       `yaml:"chat_llm"`
	Layout    LayoutConfig    `yaml:"layout"`
	RAG       RAGConfig       `yaml:"rag"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Router    RouterConfig    `yaml:"router"`
	Chat      ChatConfig      `yaml:"chat"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig selects the vector store. Driver is "postgres" (bun pgdriver), "pq" (lib/pq) or "chromem".
type DatabaseConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Password  string `yaml:"password"`
	Debug     bool   `yaml:"debug"`
	Table     string `yaml:"table"`
	Index     string `yaml:"index"`
	Dimension int    `yaml:"dimension"`
}

type ChromemConfig struct {
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
	ExportPath    string `yaml:"export_path"`
}

// LLMConfig configures one langchaingo provider. Provider is "googleai", "openai" or "ollama".
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type LayoutConfig struct {
	ShadowDistance float64 `yaml:"shadow_distance"`
	LineTolerance  float64 `yaml:"line_tolerance"`
	SpaceGap       float64 `yaml:"space_gap"`
	MinPageChars   int     `yaml:"min_page_chars"`
}

// RAGConfig holds the chunking policy. Policy is "page" or "window".
type RAGConfig struct {
	Policy        string `yaml:"policy"`
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	MinChunkChars int    `yaml:"min_chunk_chars"`
}

type EmbeddingConfig struct {
	MaxChars          int           `yaml:"max_chars"`
	CallDelay         time.Duration `yaml:"call_delay"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
	RateLimitRetries  int           `yaml:"rate_limit_retries"`
	CacheSize         int           `yaml:"cache_size"`
	Timeout           time.Duration `yaml:"timeout"`
}

type RetrievalConfig struct {
	TopK           int    `yaml:"top_k"`
	IndexTopK      int    `yaml:"index_top_k"`
	IndexPages     []int  `yaml:"index_pages"`
	MaxResultChars int    `yaml:"max_result_chars"`
	IndexPattern   string `yaml:"index_pattern"`
}

type RouterConfig struct {
	History        int           `yaml:"history"`
	Prompt         string        `yaml:"prompt"`
	RefusalMarkers []string      `yaml:"refusal_markers"`
	Timeout        time.Duration `yaml:"timeout"`
	// Verbatim keeps the search term as the trimmed, uppercased model output with
	// no further normalization.
	Verbatim       bool          `yaml:"verbatim"`
}

type ChatConfig struct {
	History     int     `yaml:"history"`
	// Prompt is a fmt template taking the catalog URL and the context, in that
	// order, as its two %s operands. Literal percent signs are written %%.
	Prompt      string  `yaml:"prompt"`
	CatalogURL  string  `yaml:"catalog_url"`
	Temperature float64 `yaml:"temperature"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level           string `yaml:"level"`
	DiagnosticsFile string `yaml:"diagnostics_file"`
}

// LoadConfig reads the YAML file at path, expanding ${VAR} placeholders from the environment.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config populated with defaults only.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}
