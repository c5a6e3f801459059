// Package sqlite provides the durable memory store, backed by
// modernc.org/sqlite (pure Go, no cgo).
//
// Embeddings are stored as little-endian float32 BLOBs next to the
// record row; similarity is ranked in Go over the filtered candidate
// set. The table is append-only: there is no UPDATE or DELETE path.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swasthya/swasthya-go/core"
	"github.com/swasthya/swasthya-go/memory"
)

// Store implements memory.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS health_memory (
		id             TEXT PRIMARY KEY,
		kind           TEXT NOT NULL,
		modality       TEXT NOT NULL,
		canonical_text TEXT NOT NULL,
		embedding      BLOB NOT NULL,
		fields         TEXT,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_health_memory_kind ON health_memory(kind);
	CREATE INDEX IF NOT EXISTS idx_health_memory_created ON health_memory(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert persists the record. A replay of the same record is a no-op;
// an ID collision with different content is an error. The single-row
// INSERT is atomic, so a failed insert leaves no partial state.
func (s *Store) Insert(ctx context.Context, rec memory.MemoryRecord) error {
	switch {
	case rec.ID == "":
		return errors.New("insert: record has no id")
	case rec.CanonicalText == "":
		return errors.New("insert: record has empty canonical text")
	case len(rec.Embedding) == 0:
		return errors.New("insert: record has no embedding")
	}

	if dims, err := s.dimensions(ctx); err != nil {
		return err
	} else if dims != 0 && dims != len(rec.Embedding) {
		return fmt.Errorf("insert: embedding has %d dimensions, store holds %d", len(rec.Embedding), dims)
	}

	fields, err := encodeFields(rec.StructuredFields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO health_memory (id, kind, modality, canonical_text, embedding, fields, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, string(rec.Kind), string(rec.Modality), rec.CanonicalText,
		encodeEmbedding(rec.Embedding), fields, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return mapErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Conflict: accept an exact replay, reject anything else.
		var existing string
		err := s.db.QueryRowContext(ctx, `SELECT canonical_text FROM health_memory WHERE id = ?`, rec.ID).Scan(&existing)
		if err != nil {
			return mapErr(err)
		}
		if existing != rec.CanonicalText {
			return fmt.Errorf("insert: id %s already holds a different record", rec.ID)
		}
	}
	return nil
}

// Query loads the filtered candidate set, ranks by cosine similarity
// in Go, and returns the top K. Ties break by most-recent created_at,
// then ID.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int, filter memory.Filter) ([]memory.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	if dims, err := s.dimensions(ctx); err != nil {
		return nil, err
	} else if dims != 0 && dims != len(embedding) {
		return nil, fmt.Errorf("query: embedding has %d dimensions, store holds %d", len(embedding), dims)
	}

	var hits []memory.Hit
	err := s.scanRows(ctx, filter, func(rec memory.MemoryRecord) bool {
		hits = append(hits, memory.Hit{
			Record: rec,
			Score:  memory.CosineSimilarity(embedding, rec.Embedding),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Record.CreatedAt.Equal(hits[j].Record.CreatedAt) {
			return hits[i].Record.CreatedAt.After(hits[j].Record.CreatedAt)
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Scan iterates filtered records in insertion (rowid) order.
func (s *Store) Scan(ctx context.Context, filter memory.Filter, fn func(memory.MemoryRecord) bool) error {
	return s.scanRows(ctx, filter, fn)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_memory`).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) scanRows(ctx context.Context, filter memory.Filter, fn func(memory.MemoryRecord) bool) error {
	where, args := buildWhere(filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, modality, canonical_text, embedding, fields, created_at
		FROM health_memory`+where+`
		ORDER BY rowid`, args...)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if !fn(rec) {
			return nil
		}
	}
	return mapErr(rows.Err())
}

// dimensions reads the stored embedding width (0 when empty).
func (s *Store) dimensions(ctx context.Context) (int, error) {
	var length sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT LENGTH(embedding) FROM health_memory LIMIT 1`).Scan(&length)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return int(length.Int64) / 4, nil
}

func buildWhere(filter memory.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	// Deterministic clause order keeps query plans stable.
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, k := range keys {
		switch k {
		case memory.FilterKind:
			clauses = append(clauses, "kind = ?")
		case memory.FilterModality:
			clauses = append(clauses, "modality = ?")
		default:
			// Bind the JSON path as a parameter so filter keys never
			// reach the query text.
			clauses = append(clauses, "json_extract(fields, ?) = ?")
			args = append(args, "$."+k)
		}
		args = append(args, filter[k])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecord(rows *sql.Rows) (memory.MemoryRecord, error) {
	var (
		rec       memory.MemoryRecord
		kind      string
		modality  string
		blob      []byte
		fields    sql.NullString
		createdAt string
	)
	if err := rows.Scan(&rec.ID, &kind, &modality, &rec.CanonicalText, &blob, &fields, &createdAt); err != nil {
		return memory.MemoryRecord{}, mapErr(err)
	}
	rec.Kind = core.Kind(kind)
	rec.Modality = core.Modality(modality)

	embedding, err := decodeEmbedding(blob)
	if err != nil {
		return memory.MemoryRecord{}, err
	}
	rec.Embedding = embedding

	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &rec.StructuredFields); err != nil {
			return memory.MemoryRecord{}, fmt.Errorf("decode fields: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return memory.MemoryRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = ts
	return rec, nil
}

func encodeFields(fields map[string]any) (sql.NullString, error) {
	if len(fields) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// mapErr translates transient SQLite conditions into the retriable
// core.ErrStorageUnavailable; everything else passes through.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	return err
}
