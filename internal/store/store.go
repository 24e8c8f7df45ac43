package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrUnavailable wraps every storage failure so callers can distinguish
// "the store is down" from their own errors without inspecting strings.
var ErrUnavailable = errors.New("vector store unavailable")

// Store persists vector records in namespaced partitions and answers
// similarity queries. Upsert is idempotent per record ID: writing the
// same ID overwrites the previous record.
type Store interface {
	// Upsert inserts or replaces the given records in the namespace.
	Upsert(ctx context.Context, records []VectorRecord, namespace string) error
	// Query returns up to k records closest to vector by cosine
	// similarity, best first, scoped to the namespace.
	Query(ctx context.Context, vector []float32, k int, namespace string) ([]SearchResult, error)
	// Count reports how many records the namespace holds.
	Count(ctx context.Context, namespace string) (int, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and initializes the
// schema for the given embedding dimensionality.
func Open(dbPath string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrUnavailable, err)
	}
	if err := Init(db, dim); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrUnavailable, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []VectorRecord, namespace string) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	// vec0 has no native INSERT OR REPLACE; delete-then-insert inside
	// one transaction gives the same per-ID overwrite semantics.
	del, err := tx.PrepareContext(ctx, "DELETE FROM vec_records WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%w: prepare delete: %v", ErrUnavailable, err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO vec_records (id, namespace, embedding, text, source, page, page_label)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", ErrUnavailable, err)
	}
	defer ins.Close()

	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Vector)
		if err != nil {
			return fmt.Errorf("serialize vector for %s: %w", r.ID, err)
		}
		if _, err := del.ExecContext(ctx, r.ID); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, r.ID, err)
		}
		m := r.Metadata
		if _, err := ins.ExecContext(ctx, r.ID, namespace, blob, m.Text, m.Source, m.Page, m.PageLabel); err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrUnavailable, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int, namespace string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	// Consider more candidates than requested, as the original
	// retriever did (fetch_k = max(20, 4k)), and cut to k afterwards.
	fetchK := 4 * k
	if fetchK < 20 {
		fetchK = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, distance, text, source, page, page_label
		FROM vec_records
		WHERE embedding MATCH ? AND namespace = ? AND k = ?
		ORDER BY distance
	`, blob, namespace, fetchK)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance sql.NullFloat64
		err := rows.Scan(&r.ID, &distance, &r.Metadata.Text, &r.Metadata.Source, &r.Metadata.Page, &r.Metadata.PageLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", ErrUnavailable, err)
		}
		if distance.Valid {
			// Cosine distance in [0,2] maps to similarity 1-d.
			r.Score = 1 - distance.Float64
			r.Scored = true
		}
		results = append(results, r)
		if len(results) == k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate results: %v", ErrUnavailable, err)
	}
	return results, nil
}

func (s *SQLiteStore) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_records WHERE namespace = ?", namespace,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
