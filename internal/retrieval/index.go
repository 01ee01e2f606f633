package retrieval

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// chunkRecord is one stored, embedded text chunk.
type chunkRecord struct {
	documentID string
	chunkIndex int
	text       string
	embedding  []float64
}

// Index is the embedded store of chunk records backing Ingest/Query. It
// lives under the managed home directory's data/ tree, separate from the
// Store (C1): retrieval indices are not one of the five core entities and
// scale differently (bulk vector rows vs. a handful of control-plane rows).
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if absent) the retrieval index file under
// dataDir.
func OpenIndex(dataDir string) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "retrieval.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open retrieval index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			document_id  TEXT NOT NULL,
			chunk_index  INTEGER NOT NULL,
			text         TEXT NOT NULL,
			embedding    TEXT NOT NULL,
			PRIMARY KEY (document_id, chunk_index)
		);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate retrieval index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }

// Store persists one embedded chunk, replacing any prior chunk at the same
// (documentID, chunkIndex).
func (idx *Index) Store(rec chunkRecord) error {
	raw, err := json.Marshal(rec.embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = idx.db.Exec(`
		INSERT INTO chunks (document_id, chunk_index, text, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET text=excluded.text, embedding=excluded.embedding`,
		rec.documentID, rec.chunkIndex, rec.text, string(raw))
	return err
}

// All returns every stored chunk. Acceptable at the scale this index is
// designed for (single-host, single-user retrieval); a production-scale
// index would push similarity search into the database rather than
// loading every embedding into the process.
func (idx *Index) All() ([]chunkRecord, error) {
	rows, err := idx.db.Query(`SELECT document_id, chunk_index, text, embedding FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []chunkRecord
	for rows.Next() {
		var rec chunkRecord
		var raw string
		if err := rows.Scan(&rec.documentID, &rec.chunkIndex, &rec.text, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &rec.embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
