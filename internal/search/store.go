// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/jeranaias/quorum/internal/chunk"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDatabaseError indicates a database operation failed
	ErrDatabaseError = errors.New("database error")
)

// DefaultTopK is the result limit used when a query does not specify one.
const DefaultTopK = 10

// =============================================================================
// RESULTS
// =============================================================================

// Result is a single search hit, best match first.
type Result struct {
	// FilePath is relative to the indexed directory.
	FilePath string
	FileName string
	Content  string
	// ChunkIndex orders a file's snippets.
	ChunkIndex int
	IsSnippet  bool
	// Rank is the FTS5 bm25 score. More negative means more relevant.
	Rank float64
}

// Stats summarizes the index contents.
type Stats struct {
	Files       int
	Chunks      int
	Snippets    int
	LastIndexed time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed chunk index. It implements chunk.Sink so an
// Indexer can write straight into it.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the chunk index at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",       // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=268435456",     // 256MB mmap
		"PRAGMA foreign_keys=ON",         // Enable foreign key constraints
		"PRAGMA wal_autocheckpoint=1000", // Checkpoint every 1000 pages
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Write stores one batch of chunks. The whole batch commits in a single
// transaction so a failed write leaves the index unchanged.
func (s *Store) Write(chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (file_path, file_name, content, chunk_index, is_snippet)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(c.FilePath, c.FileName, c.Content, c.ChunkIndex, c.IsSnippet); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('last_indexed_at', ?)",
		strconv.FormatInt(time.Now().Unix(), 10),
	); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Query returns up to topK snippet chunks matching text, most relevant
// first with ties broken by insertion order. Whole-file chunks never
// match; adding an entire file goes back to the file itself. A blank
// query returns no results.
func (s *Store) Query(text string, topK int) ([]Result, error) {
	match := buildMatchQuery(text)
	if match == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.file_path, c.file_name, c.content, c.chunk_index, c.is_snippet, fts.rank
		FROM chunks_fts fts
		JOIN chunks c ON c.id = fts.rowid
		WHERE chunks_fts MATCH ? AND c.is_snippet = 1
		ORDER BY fts.rank, c.id
		LIMIT ?
	`, match, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.FilePath, &r.FileName, &r.Content, &r.ChunkIndex, &r.IsSnippet, &r.Rank); err != nil {
			continue
		}
		results = append(results, r)
	}

	return results, nil
}

// DeleteFile removes every chunk belonging to one source file. Used by
// the watcher before re-indexing a changed file.
func (s *Store) DeleteFile(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM chunks WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Files returns the indexed file paths in sorted order.
func (s *Store) Files() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT DISTINCT file_path FROM chunks ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err == nil {
			files = append(files, path)
		}
	}
	return files, nil
}

// Stats returns index counters. Callers that share a chunk.Indexer with
// this store should prefer its IndexedCount for "files processed this
// session"; Stats reflects what is physically in the database.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(is_snippet), 0), COUNT(DISTINCT file_path)
		FROM chunks
	`).Scan(&st.Chunks, &st.Snippets, &st.Files)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	var lastIndexed string
	err = s.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_indexed_at'").Scan(&lastIndexed)
	if err == nil {
		if ts, perr := strconv.ParseInt(lastIndexed, 10, 64); perr == nil && ts > 0 {
			st.LastIndexed = time.Unix(ts, 0)
		}
	}

	return st, nil
}

// Reset drops every indexed chunk. Callers that share a chunk.Indexer
// with this store should Clear it as well so the next pass re-chunks
// everything.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.Exec("UPDATE metadata SET value = '0' WHERE key = 'last_indexed_at'"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// buildMatchQuery turns free text into an FTS5 MATCH expression. Each
// whitespace-separated term becomes a quoted phrase and the phrases are
// OR-ed, so a chunk matching any term ranks rather than requiring all of
// them. Quoting neutralizes FTS5 operator characters in user input.
func buildMatchQuery(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
