package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"medibot/internal/chunker"
	"medibot/internal/loader"
	"medibot/internal/store"
)

// IngestPages chunks the given pages and embeds and upserts them in
// fixed-size batches. Batches are self-contained, so they may run with
// bounded parallelism; the first failing batch cancels the run and the
// returned stats report the records upserted up to that point.
func (ing *Ingestor) IngestPages(ctx context.Context, pages []loader.PageDocument) (*Stats, error) {
	chunks := ing.splitter.SplitPages(pages)
	stats := &Stats{
		PagesLoaded:   len(pages),
		ChunksCreated: len(chunks),
	}
	if len(chunks) == 0 {
		return stats, nil
	}

	records := ing.buildRecords(chunks)

	workers := ing.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var upserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	total := len(records)
	for start := 0; start < total; start += ing.cfg.BatchSize {
		end := start + ing.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := records[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, r := range batch {
				texts[i] = r.Metadata.Text
			}

			vectors, err := ing.emb.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			for i := range batch {
				batch[i].Vector = vectors[i]
			}

			if err := ing.st.Upsert(gctx, batch, ing.cfg.Namespace); err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}

			n := upserted.Add(int64(len(batch)))
			log.Printf("upserted %d/%d chunks", n, total)
			return nil
		})
	}

	err := g.Wait()
	stats.ChunksUpserted = int(upserted.Load())
	return stats, err
}

// buildRecords assigns IDs and metadata to every chunk. The chunk
// offset counts per source page so deterministic IDs stay stable across
// runs regardless of how many other documents are ingested.
func (ing *Ingestor) buildRecords(chunks []chunker.Chunk) []store.VectorRecord {
	offsets := make(map[string]int, len(chunks))
	records := make([]store.VectorRecord, len(chunks))
	for i, c := range chunks {
		key := fmt.Sprintf("%s|%d", c.Source, c.Page)
		offset := offsets[key]
		offsets[key] = offset + 1

		records[i] = store.VectorRecord{
			ID: ing.recordID(c, offset),
			Metadata: store.Metadata{
				Text:      c.Text,
				Source:    c.Source,
				Page:      c.Page,
				PageLabel: c.PageLabel,
			},
		}
	}
	return records
}

// recordID builds "<basename>_p<page>_<suffix>". The default suffix is
// 10 hex chars of a random UUID, which means re-ingesting the same
// corpus creates new records next to the old ones. Deterministic mode
// hashes source, page, and chunk offset instead, making the ID (and
// therefore the upsert) stable across runs.
func (ing *Ingestor) recordID(c chunker.Chunk, offset int) string {
	base := filepath.Base(c.Source)
	if ing.cfg.DeterministicIDs {
		sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", c.Source, c.Page, offset))
		return fmt.Sprintf("%s_p%d_%s", base, c.Page, hex.EncodeToString(sum[:4]))
	}
	u := uuid.New()
	return fmt.Sprintf("%s_p%d_%s", base, c.Page, hex.EncodeToString(u[:])[:10])
}
