package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document QA service. It is loaded
// once at startup, validated, and passed by reference to each component.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Multimodal MultimodalConfig `yaml:"multimodal"`
	LLM        LLMConfig        `yaml:"llm"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds chunk store paths.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"` // holds docqa.db and embedcache.db
}

// EmbeddingConfig holds the primary text embedder configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g. "all-minilm"
	BaseURL   string `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheDB   bool   `yaml:"cache_db"` // persist embeddings in embedcache.db
}

// MultimodalConfig holds the optional multimodal embedder configuration.
type MultimodalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	// EmbedText controls whether text chunks also receive a multimodal
	// vector (images always do when enabled).
	EmbedText bool `yaml:"embed_text"`
}

// LLMConfig holds the text-generation service configuration.
type LLMConfig struct {
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	OCRLanguages string `yaml:"ocr_languages"`
}

// RetrieveConfig holds retrieval engine configuration.
type RetrieveConfig struct {
	TopK                 int           `yaml:"top_k"`
	SimilarityThreshold  float64       `yaml:"similarity_threshold"`
	RecencyWeight        float64       `yaml:"recency_weight"`
	RecencyHalfLife      time.Duration `yaml:"recency_half_life"`
	KeywordFallbackScore float64       `yaml:"keyword_fallback_score"`
	MultiQueryEnabled    bool          `yaml:"multi_query_enabled"`
	QueryVariations      int           `yaml:"query_variations"`
	ExpandTimeout        time.Duration `yaml:"expand_timeout"`
}

// CacheConfig holds query-result cache configuration. When RedisAddr is set
// the cache is backed by Redis, otherwise by an in-process LRU.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
	MaxSize   int           `yaml:"max_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxUploadBytes:  64 << 20,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			BaseURL:   "http://localhost:11434/v1",
			APIKeyEnv: "EMBEDDING_API_KEY",
			Dimension: 384,
			BatchSize: 100,
			CacheDB:   true,
		},
		Multimodal: MultimodalConfig{
			Enabled:   false,
			Model:     "clip-vit-base-patch32",
			BaseURL:   "http://localhost:8090",
			Dimension: 768,
			EmbedText: true,
		},
		LLM: LLMConfig{
			Model:     "llama3.1",
			BaseURL:   "http://localhost:11434/v1",
			APIKeyEnv: "LLM_API_KEY",
			Timeout:   60 * time.Second,
		},
		Ingest: IngestConfig{
			ChunkSize:    1500,
			ChunkOverlap: 200,
			OCRLanguages: "eng",
		},
		Retrieve: RetrieveConfig{
			TopK:                 5,
			SimilarityThreshold:  0.1,
			RecencyWeight:        0.15,
			RecencyHalfLife:      30 * 24 * time.Hour,
			KeywordFallbackScore: 0.15,
			MultiQueryEnabled:    true,
			QueryVariations:      3,
			ExpandTimeout:        10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
			MaxSize: 256,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load loads configuration from a YAML file and then applies environment
// overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the file-based configuration with recognized
// environment variables.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "DOCQA_ADDR")
	setString(&c.Storage.DataDir, "DOCQA_DATA_DIR")
	setString(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Multimodal.BaseURL, "MULTIMODAL_BASE_URL")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")

	setInt(&c.Ingest.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Ingest.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.Retrieve.TopK, "DEFAULT_TOP_K")
	setInt(&c.Retrieve.QueryVariations, "NUM_QUERY_VARIATIONS")
	setFloat(&c.Retrieve.SimilarityThreshold, "SIMILARITY_THRESHOLD")
	setFloat(&c.Retrieve.RecencyWeight, "RECENCY_WEIGHT")
	setBool(&c.Retrieve.MultiQueryEnabled, "MULTI_QUERY_ENABLED")
	setBool(&c.Multimodal.Enabled, "MULTIMODAL_ENABLED")
}

// Validate checks invariants once at startup.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.RecencyWeight < 0 || c.Retrieve.RecencyWeight > 1 {
		return fmt.Errorf("retrieve.recency_weight must be in [0, 1], got %g", c.Retrieve.RecencyWeight)
	}
	if c.Retrieve.QueryVariations < 0 {
		return fmt.Errorf("retrieve.query_variations must not be negative, got %d", c.Retrieve.QueryVariations)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Multimodal.Enabled && c.Multimodal.Dimension <= 0 {
		return fmt.Errorf("multimodal.dimension must be positive, got %d", c.Multimodal.Dimension)
	}
	return nil
}

// ChunkDBPath returns the path of the sqlite chunk store.
func (c *Config) ChunkDBPath() string {
	return filepath.Join(c.Storage.DataDir, "docqa.db")
}

// EmbedCachePath returns the path of the bbolt embedding cache.
func (c *Config) EmbedCachePath() string {
	return filepath.Join(c.Storage.DataDir, "embedcache.db")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
