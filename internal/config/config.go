package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds every setting the pipelines consume. Values come from the
// environment (a .env file is loaded by the CLI before parsing).
type Config struct {
	DBPath     string `env:"MEDIBOT_DB" envDefault:"data/medibot.db"`
	Namespace  string `env:"MEDIBOT_NAMESPACE" envDefault:"medical"`
	SourceDir  string `env:"PDF_DIR" envDefault:"data/medical_books"`
	OllamaURL  string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	EmbedModel string `env:"OLLAMA_EMBED_MODEL" envDefault:"all-minilm"`
	ChatModel  string `env:"OLLAMA_CHAT_MODEL" envDefault:"llama3.1:8b"`

	// EmbedDim must match the embedding model (all-minilm is 384-dim).
	EmbedDim int `env:"EMBED_DIM" envDefault:"384"`

	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"150"`
	BatchSize    int `env:"BATCH_SIZE" envDefault:"100"`

	TopK           int     `env:"TOP_K" envDefault:"5"`
	ScoreThreshold float64 `env:"SCORE_THRESHOLD" envDefault:"0.25"`

	// DeterministicIDs switches record IDs from the default random suffix
	// to a content-derived hash, making re-ingestion overwrite instead of
	// duplicate.
	DeterministicIDs bool `env:"MEDIBOT_DETERMINISTIC_IDS" envDefault:"false"`

	// IngestWorkers bounds how many batches embed and upsert concurrently.
	IngestWorkers int `env:"INGEST_WORKERS" envDefault:"1"`
}

// Load parses the environment and validates the result. A validation
// failure means the process must refuse to start.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the pipelines rely on.
func (c *Config) Validate() error {
	switch {
	case c.OllamaURL == "":
		return fmt.Errorf("config: OLLAMA_URL must not be empty")
	case c.Namespace == "":
		return fmt.Errorf("config: MEDIBOT_NAMESPACE must not be empty")
	case c.EmbedDim <= 0:
		return fmt.Errorf("config: EMBED_DIM must be positive, got %d", c.EmbedDim)
	case c.ChunkSize <= 0:
		return fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	case c.BatchSize <= 0:
		return fmt.Errorf("config: BATCH_SIZE must be positive, got %d", c.BatchSize)
	case c.TopK <= 0:
		return fmt.Errorf("config: TOP_K must be positive, got %d", c.TopK)
	case c.ScoreThreshold < 0 || c.ScoreThreshold > 1:
		return fmt.Errorf("config: SCORE_THRESHOLD must be in [0,1], got %g", c.ScoreThreshold)
	}
	return nil
}
