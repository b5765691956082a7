package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"vaultrag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	source     TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	text       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (collection, record_id)
);
CREATE INDEX IF NOT EXISTS idx_records_source ON records (collection, source);
`

// Index is a durable vector index backed by a single SQLite file.
//
// Vectors are stored as little-endian float32 blobs (float32 precision is
// plenty for cosine ranking). Search is an exact brute-force scan in rowid
// order, so results are deterministic and equal scores resolve to the
// earlier insertion; there is no approximate structure and therefore no
// recall trade-off.
type Index struct {
	db         *sql.DB
	collection string
}

// Open opens or creates the index file, creating parent directories and
// running the schema. Rows are written under the given collection name so
// several collections can share a file.
func Open(path, collection string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create directory: %v", domain.ErrStoreUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL&_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStoreUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStoreUnavailable, path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreUnavailable, err)
	}
	return &Index{db: db, collection: collection}, nil
}

// Upsert stores the batch in one transaction, first deleting every record
// whose source appears in the batch. The transaction is committed before
// return, so the records are durable once Upsert succeeds.
func (s *Index) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, done := seen[r.Chunk.Source]; done {
			continue
		}
		seen[r.Chunk.Source] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE collection = ? AND source = ?`,
			s.collection, r.Chunk.Source); err != nil {
			return fmt.Errorf("delete stale records for %s: %w", r.Chunk.Source, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, record_id, source, seq, text, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			s.collection, r.ID, r.Chunk.Source, r.Chunk.Index, r.Chunk.Text,
			vectorToBlob(r.Vector), len(r.Vector), now); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Search scans all stored vectors and returns the k best cosine matches,
// ordered by descending score with ties broken by insertion order.
func (s *Index) Search(ctx context.Context, vector []float64, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidArgument)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, seq, text, vector, dimension
		FROM records WHERE collection = ? ORDER BY rowid`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []domain.RetrievalResult
	for rows.Next() {
		var (
			source, text string
			seq, dim     int
			blob         []byte
		)
		if err := rows.Scan(&source, &seq, &text, &blob, &dim); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		stored := blobToVector(blob)
		if len(stored) != dim || len(stored) != len(vector) {
			continue // dimension mismatch, likely a different embedding model
		}
		results = append(results, domain.RetrievalResult{
			Chunk: domain.Chunk{Text: text, Source: source, Index: seq},
			Score: cosine(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *Index) Close() error { return s.db.Close() }

func vectorToBlob(v []float64) []byte {
	blob := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(float32(f)))
	}
	return blob
}

func blobToVector(blob []byte) []float64 {
	if len(blob)%4 != 0 {
		return nil
	}
	v := make([]float64, len(blob)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:])))
	}
	return v
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
