package ingest

import (
	"context"
	"fmt"

	"medibot/internal/chunker"
	"medibot/internal/loader"
	"medibot/internal/store"
)

// Embedder turns a batch of texts into vectors. Satisfied by
// embedder.OllamaEmbedder.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store receives the embedded records. Satisfied by store.SQLiteStore.
type Store interface {
	Upsert(ctx context.Context, records []store.VectorRecord, namespace string) error
}

// Config holds the ingestion parameters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Namespace    string

	// DeterministicIDs derives record IDs from content position instead
	// of a random suffix, so re-ingesting overwrites instead of
	// duplicating.
	DeterministicIDs bool

	// Workers bounds how many batches embed and upsert concurrently.
	// Zero or one means sequential.
	Workers int
}

// Stats reports ingestion results. On a failed run ChunksUpserted
// counts the records written before the abort; earlier batches are not
// rolled back.
type Stats struct {
	PagesLoaded    int
	ChunksCreated  int
	ChunksUpserted int
}

// Ingestor composes loader, chunker, embedder, and store into a
// batched document load.
type Ingestor struct {
	emb      Embedder
	st       Store
	splitter *chunker.Splitter
	cfg      Config
}

// New validates the configuration and returns an Ingestor.
func New(emb Embedder, st Store, cfg Config) (*Ingestor, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	splitter, err := chunker.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Ingestor{emb: emb, st: st, splitter: splitter, cfg: cfg}, nil
}

// Ingest loads every supported document under sourceDir and runs the
// full chunk → embed → upsert pipeline.
func (ing *Ingestor) Ingest(ctx context.Context, sourceDir string) (*Stats, error) {
	pages, err := loader.LoadDir(sourceDir)
	if err != nil {
		return nil, err
	}
	return ing.IngestPages(ctx, pages)
}
