// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/yomu/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and migrates the schema.
// Parent directories are created if they do not exist. ":memory:" is supported for tests.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and every pooled ":memory:" connection
	// would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// GetSource returns the tracked source for url.
func (s *SQLiteStorage) GetSource(ctx context.Context, url string) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, kind, title, fingerprint, status, last_processed_at
		 FROM sources WHERE url = ?`, url)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source not found: %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// UpsertSource inserts the source or overwrites the stored row for its URL.
func (s *SQLiteStorage) UpsertSource(ctx context.Context, src *models.Source) error {
	var processed sql.NullTime
	if !src.LastProcessedAt.IsZero() {
		processed = sql.NullTime{Time: src.LastProcessedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (url, kind, title, fingerprint, status, last_processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			last_processed_at = excluded.last_processed_at`,
		src.URL, string(src.Kind), src.Title, src.Fingerprint, string(src.Status), processed,
	)
	return err
}

// ListSources returns sources ordered by URL with offset and limit. A limit <= 0 means no limit.
func (s *SQLiteStorage) ListSources(ctx context.Context, offset, limit int) ([]*models.Source, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, kind, title, fingerprint, status, last_processed_at
		 FROM sources ORDER BY url LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ResetSources removes every tracked source so the next run reprocesses everything.
func (s *SQLiteStorage) ResetSources(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (*models.Source, error) {
	var src models.Source
	var kind, status string
	var processed sql.NullTime
	if err := r.Scan(&src.URL, &kind, &src.Title, &src.Fingerprint, &status, &processed); err != nil {
		return nil, err
	}
	src.Kind = models.SourceKind(kind)
	src.Status = models.SourceStatus(status)
	if processed.Valid {
		src.LastProcessedAt = processed.Time
	}
	return &src, nil
}

// AppendEvent writes an ingest log entry. Timestamp defaults to now.
func (s *SQLiteStorage) AppendEvent(ctx context.Context, ev *models.Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_log (run_id, url, event, detail, timestamp) VALUES (?, ?, ?, ?, ?)`,
		ev.RunID, ev.SourceURL, ev.Kind, ev.Detail, ev.Timestamp,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// ListEvents returns the most recent events, newest first. A limit <= 0 means no limit.
func (s *SQLiteStorage) ListEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, event, detail, timestamp
		 FROM ingest_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.SourceURL, &ev.Kind, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// ReplaceChunks deletes every chunk of sourceURL and inserts chunks in one transaction,
// so readers never see a mix of old and new chunks for a source.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, sourceURL string, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_url = ?`, sourceURL); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source_url, sequence_index, text, title, word_start, word_end, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.SourceURL != sourceURL {
			return fmt.Errorf("chunk %s belongs to %s, not %s", chunk.ID, chunk.SourceURL, sourceURL)
		}
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.SourceURL, chunk.SequenceIndex, chunk.Text, chunk.Title,
			chunk.WordStart, chunk.WordEnd, encodeVector(chunk.Embedding), chunk.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteChunksBySource removes all chunks for a source.
func (s *SQLiteStorage) DeleteChunksBySource(ctx context.Context, sourceURL string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source_url = ?`, sourceURL)
	return err
}

// DeleteAllChunks empties the chunk table.
func (s *SQLiteStorage) DeleteAllChunks(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

const chunkColumns = `id, source_url, sequence_index, text, title, word_start, word_end, embedding, created_at`

// GetChunk returns a chunk by ID.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetChunksBySource returns all chunks for a source ordered by sequence index.
func (s *SQLiteStorage) GetChunksBySource(ctx context.Context, sourceURL string) ([]*models.Chunk, error) {
	return s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE source_url = ? ORDER BY sequence_index`, sourceURL)
}

// ListChunks returns every chunk in insertion order. Lexical ranking relies on this order for ties.
func (s *SQLiteStorage) ListChunks(ctx context.Context) ([]*models.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks ORDER BY rowid`)
}

func (s *SQLiteStorage) queryChunks(ctx context.Context, query string, args ...any) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func scanChunk(r rowScanner) (*models.Chunk, error) {
	var chunk models.Chunk
	var blob []byte
	if err := r.Scan(&chunk.ID, &chunk.SourceURL, &chunk.SequenceIndex, &chunk.Text, &chunk.Title,
		&chunk.WordStart, &chunk.WordEnd, &blob, &chunk.CreatedAt); err != nil {
		return nil, err
	}
	chunk.Embedding = decodeVector(blob)
	return &chunk, nil
}

// CountSources returns the number of tracked sources.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM sources`)
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM chunks`)
}

// CountEvents returns the number of ingest log entries.
func (s *SQLiteStorage) CountEvents(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ingest_log`)
}

func (s *SQLiteStorage) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector stores a vector as little-endian float32s; nil for no vector.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
