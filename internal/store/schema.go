package store

import (
	"database/sql"
	"fmt"
)

// The single vec0 table holds vectors, identity, and metadata together:
// a TEXT primary key for the record ID, a namespace partition key so
// one index can host several corpora, cosine as the distance metric,
// and auxiliary columns for the chunk payload.
const ddl = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_records USING vec0(
    id TEXT PRIMARY KEY,
    namespace TEXT PARTITION KEY,
    embedding FLOAT[%d] distance_metric=cosine,
    +text TEXT,
    +source TEXT,
    +page INTEGER,
    +page_label TEXT
);
`

// Init creates the schema for the given embedding dimensionality.
func Init(db *sql.DB, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}
	_, err := db.Exec(fmt.Sprintf(ddl, dim))
	return err
}
