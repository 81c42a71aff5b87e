package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Ingest.ChunkSize != 1500 {
		t.Errorf("expected ChunkSize=1500, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.SimilarityThreshold != 0.1 {
		t.Errorf("expected SimilarityThreshold=0.1, got %f", cfg.Retrieve.SimilarityThreshold)
	}
	if cfg.Retrieve.RecencyWeight != 0.15 {
		t.Errorf("expected RecencyWeight=0.15, got %f", cfg.Retrieve.RecencyWeight)
	}
	if cfg.Retrieve.QueryVariations != 3 {
		t.Errorf("expected QueryVariations=3, got %d", cfg.Retrieve.QueryVariations)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/docqa.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	content := `
ingest:
  chunk_size: 800
  chunk_overlap: 100
retrieve:
  top_k: 10
  multi_query_enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.ChunkSize != 800 {
		t.Errorf("expected ChunkSize=800, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("expected ChunkOverlap=100, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.MultiQueryEnabled {
		t.Error("expected MultiQueryEnabled=false")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("CHUNK_SIZE", "1000")
	t.Setenv("MULTI_QUERY_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.SimilarityThreshold != 0.5 {
		t.Errorf("expected SimilarityThreshold=0.5, got %f", cfg.Retrieve.SimilarityThreshold)
	}
	if cfg.Ingest.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Retrieve.MultiQueryEnabled {
		t.Error("expected MultiQueryEnabled=false")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }},
		{"zero top_k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"recency weight > 1", func(c *Config) { c.Retrieve.RecencyWeight = 1.5 }},
		{"zero embedding dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDataPaths(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/var/lib/docqa"

	if got := cfg.ChunkDBPath(); got != filepath.Join("/var/lib/docqa", "docqa.db") {
		t.Errorf("unexpected chunk db path: %s", got)
	}
	if got := cfg.EmbedCachePath(); got != filepath.Join("/var/lib/docqa", "embedcache.db") {
		t.Errorf("unexpected embed cache path: %s", got)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
	if Default().Retrieve.RecencyHalfLife != 30*24*time.Hour {
		t.Error("unexpected default recency half-life")
	}
}
