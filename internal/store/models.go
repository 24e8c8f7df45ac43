package store

// Metadata is the payload persisted alongside each vector. It carries
// everything needed to cite and re-display the chunk without a second
// lookup.
type Metadata struct {
	Text      string
	Source    string
	Page      int
	PageLabel string
}

// VectorRecord is one embedded chunk keyed by a globally unique ID.
// Records are never mutated in place; an upsert with the same ID
// replaces the whole record.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// SearchResult is a record matched by a similarity query. Score is a
// cosine similarity in [0,1]; Scored is false when the engine returned
// no usable distance for the row, which callers must treat as "no
// measurable signal".
type SearchResult struct {
	ID       string
	Metadata Metadata
	Score    float64
	Scored   bool
}
