package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibot/internal/loader"
	"medibot/internal/store"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]store.VectorRecord

	// failOn makes the n-th Upsert call (1-based) fail.
	failOn int
	calls  int
}

func (f *fakeStore) Upsert(ctx context.Context, records []store.VectorRecord, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return errors.New("disk full")
	}
	cp := make([]store.VectorRecord, len(records))
	copy(cp, records)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeStore) records() []store.VectorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []store.VectorRecord
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

// shortPages builds n single-chunk pages, one per page.
func shortPages(n int) []loader.PageDocument {
	pages := make([]loader.PageDocument, n)
	for i := range pages {
		pages[i] = loader.PageDocument{
			Text:      fmt.Sprintf("Page %d holds a small amount of text.", i),
			Source:    "docs/book.pdf",
			Page:      i,
			PageLabel: fmt.Sprintf("%d", i+1),
		}
	}
	return pages
}

func testConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 150,
		BatchSize:    100,
		Namespace:    "medical",
		Workers:      1,
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(&fakeEmbedder{}, &fakeStore{}, Config{ChunkSize: 1000, ChunkOverlap: 150, BatchSize: 0})
	assert.Error(t, err)

	_, err = New(&fakeEmbedder{}, &fakeStore{}, Config{ChunkSize: 100, ChunkOverlap: 100, BatchSize: 10})
	assert.Error(t, err, "overlap >= chunk size must be rejected")
}

func TestIngestPagesBatches(t *testing.T) {
	st := &fakeStore{}
	ing, err := New(&fakeEmbedder{}, st, testConfig())
	require.NoError(t, err)

	stats, err := ing.IngestPages(context.Background(), shortPages(250))
	require.NoError(t, err)

	assert.Equal(t, 250, stats.PagesLoaded)
	assert.Equal(t, 250, stats.ChunksCreated)
	assert.Equal(t, 250, stats.ChunksUpserted)

	require.Len(t, st.batches, 3)
	assert.Len(t, st.batches[0], 100)
	assert.Len(t, st.batches[1], 100)
	assert.Len(t, st.batches[2], 50)

	for _, r := range st.records() {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Vector)
		assert.Equal(t, "docs/book.pdf", r.Metadata.Source)
	}
}

func TestIngestPagesPartialFailure(t *testing.T) {
	st := &fakeStore{failOn: 2}
	ing, err := New(&fakeEmbedder{}, st, testConfig())
	require.NoError(t, err)

	stats, err := ing.IngestPages(context.Background(), shortPages(250))
	require.Error(t, err)

	// The first batch landed before the failure and stays put.
	assert.Equal(t, 100, stats.ChunksUpserted)
	assert.Equal(t, 250, stats.ChunksCreated)

	// A clean re-run over the same pages completes.
	st2 := &fakeStore{}
	ing2, err := New(&fakeEmbedder{}, st2, testConfig())
	require.NoError(t, err)

	stats2, err := ing2.IngestPages(context.Background(), shortPages(250))
	require.NoError(t, err)
	assert.Equal(t, 250, stats2.ChunksUpserted)
}

func TestIngestPagesEmbedFailure(t *testing.T) {
	st := &fakeStore{}
	ing, err := New(&fakeEmbedder{err: errors.New("connection refused")}, st, testConfig())
	require.NoError(t, err)

	stats, err := ing.IngestPages(context.Background(), shortPages(10))
	require.Error(t, err)
	assert.Zero(t, stats.ChunksUpserted)
	assert.Empty(t, st.batches)
}

func TestIngestPagesEmptyInput(t *testing.T) {
	st := &fakeStore{}
	ing, err := New(&fakeEmbedder{}, st, testConfig())
	require.NoError(t, err)

	stats, err := ing.IngestPages(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.PagesLoaded)
	assert.Zero(t, stats.ChunksCreated)
	assert.Zero(t, stats.ChunksUpserted)
	assert.Empty(t, st.batches)
}

func TestRecordIDFormat(t *testing.T) {
	ing, err := New(&fakeEmbedder{}, &fakeStore{}, testConfig())
	require.NoError(t, err)

	records := ing.buildRecords(ing.splitter.SplitPages(shortPages(3)))
	require.Len(t, records, 3)

	// <basename>_p<page>_<10 hex chars>
	pattern := regexp.MustCompile(`^book\.pdf_p\d+_[0-9a-f]{10}$`)
	seen := make(map[string]bool)
	for _, r := range records {
		assert.Regexp(t, pattern, r.ID)
		assert.False(t, seen[r.ID], "duplicate ID %s", r.ID)
		seen[r.ID] = true
	}

	// Random suffixes differ between runs over the same input.
	again := ing.buildRecords(ing.splitter.SplitPages(shortPages(3)))
	assert.NotEqual(t, records[0].ID, again[0].ID)
}

func TestDeterministicRecordIDs(t *testing.T) {
	cfg := testConfig()
	cfg.DeterministicIDs = true

	ing, err := New(&fakeEmbedder{}, &fakeStore{}, cfg)
	require.NoError(t, err)

	first := ing.buildRecords(ing.splitter.SplitPages(shortPages(5)))
	second := ing.buildRecords(ing.splitter.SplitPages(shortPages(5)))
	require.Len(t, second, len(first))

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "deterministic IDs must be stable across runs")
		assert.Regexp(t, `^book\.pdf_p\d+_[0-9a-f]{8}$`, first[i].ID)
	}
}

func TestIngestPagesParallelWorkers(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 4

	st := &fakeStore{}
	ing, err := New(&fakeEmbedder{}, st, cfg)
	require.NoError(t, err)

	stats, err := ing.IngestPages(context.Background(), shortPages(250))
	require.NoError(t, err)
	assert.Equal(t, 250, stats.ChunksUpserted)
	assert.Len(t, st.records(), 250)
}
