// Package config provides application configuration management.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GEMINI_API_KEY, QDRANT_HOST, ...)
//  2. Config file (~/.siterag/config.yaml), if present
//  3. Default values mirroring the original deployment
//
// Validation happens once at startup via Validate(); a missing required
// value is a fatal startup error, not something discovered mid-ingest.
// Sentinel errors allow errors.Is checks at call sites.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrMissingQdrantHost indicates no vector store endpoint is configured.
	ErrMissingQdrantHost = errors.New("missing QDRANT_HOST")

	// ErrInvalidChunking indicates chunk size/overlap values are unusable.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRateLimit indicates the embedding rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")
)

// Defaults mirroring the original deployment of this toolchain.
const (
	DefaultCollection    = "rag_embedding"
	DefaultSitemapURL    = "https://hackathon-in-classnew.vercel.app/sitemap.xml"
	DefaultEmbedderModel = "gemini-embedding-001"
	DefaultModelName     = "gemini-2.5-flash"
	DefaultHistoryDir    = "history/prompts"

	// DefaultVectorDim is the embedding dimensionality the collection
	// schema is created with. Writes with any other width fail at the
	// store, so the embedder requests exactly this many dimensions.
	DefaultVectorDim = 1024
)

// Config stores the validated application configuration. It is constructed
// once in cmd and passed down explicitly; no package keeps global state.
type Config struct {
	// Gemini
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	EmbedderModel string `mapstructure:"embedder_model"`
	ModelName     string `mapstructure:"model_name"`

	// Qdrant
	QdrantHost   string `mapstructure:"qdrant_host"`
	QdrantPort   int    `mapstructure:"qdrant_port"`
	QdrantAPIKey string `mapstructure:"qdrant_api_key"`
	QdrantUseTLS bool   `mapstructure:"qdrant_use_tls"`
	Collection   string `mapstructure:"collection"`

	// Ingestion
	SitemapURL   string  `mapstructure:"sitemap_url"`
	ChunkSize    int     `mapstructure:"chunk_size"`
	ChunkOverlap int     `mapstructure:"chunk_overlap"`
	RateLimit    float64 `mapstructure:"rate_limit"` // embedding calls per second

	// Retrieval
	TopK int `mapstructure:"top_k"`

	// Audit trail
	HistoryDir string `mapstructure:"history_dir"`
}

// Load reads configuration from defaults, an optional config file and the
// environment. The result is not yet validated; call Validate before use.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("qdrant_port", 6334)
	v.SetDefault("collection", DefaultCollection)
	v.SetDefault("sitemap_url", DefaultSitemapURL)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 100)
	v.SetDefault("rate_limit", 1.0)
	v.SetDefault("top_k", 5)
	v.SetDefault("history_dir", DefaultHistoryDir)

	// Environment variables override everything. Bindings are explicit so
	// the external names stay stable even if struct fields move.
	bindings := map[string]string{
		"gemini_api_key": "GEMINI_API_KEY",
		"embedder_model": "EMBEDDER_MODEL",
		"model_name":     "MODEL_NAME",
		"qdrant_host":    "QDRANT_HOST",
		"qdrant_port":    "QDRANT_PORT",
		"qdrant_api_key": "QDRANT_API_KEY",
		"qdrant_use_tls": "QDRANT_USE_TLS",
		"collection":     "SITERAG_COLLECTION",
		"sitemap_url":    "SITEMAP_URL",
		"chunk_size":     "CHUNK_SIZE",
		"chunk_overlap":  "CHUNK_OVERLAP",
		"rate_limit":     "RATE_LIMIT",
		"top_k":          "TOP_K",
		"history_dir":    "HISTORY_DIR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	// Optional config file; absence is not an error.
	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".siterag"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for startup-fatal problems.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.QdrantHost == "" {
		return ErrMissingQdrantHost
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be >= 1, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: must be > 0 calls/sec, got %v", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: must be in [1, 100], got %d", ErrInvalidTopK, c.TopK)
	}
	return nil
}
