// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chunk splits document files into search-index chunks.
//
// Small files index as one whole-file chunk. Large files split on
// blank-line paragraph boundaries into snippet chunks, followed by one
// whole-file chunk so search hits can still pull in the entire file. The
// Indexer tracks which paths it has processed and skips them on subsequent
// calls, making repeated indexing of the same tree idempotent.
package chunk

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/multierr"
)

// DefaultMaxChunkSize is the snippet size threshold in characters. Files
// shorter than this index whole; longer files split into snippets no
// larger than this (single oversized paragraphs excepted).
const DefaultMaxChunkSize = 4000

// Chunk is one unit written to the search index.
type Chunk struct {
	// FilePath is the path relative to the indexed directory.
	FilePath string
	// FileName is the base name of FilePath.
	FileName string
	Content  string
	// ChunkIndex orders a file's snippets. Zero for whole-file chunks.
	ChunkIndex int
	// IsSnippet distinguishes paragraph snippets from whole-file chunks.
	IsSnippet bool
}

// Sink receives the chunks produced by one Index call in a single batch.
type Sink interface {
	Write(chunks []Chunk) error
}

// ReadFunc reads one file's content as text. The path is absolute.
type ReadFunc func(path string) (string, error)

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits text on blank lines and greedily packs the
// paragraphs into chunks of at most max characters. A paragraph longer
// than max becomes its own oversized chunk rather than being split
// mid-paragraph.
func SplitParagraphs(text string, max int) []string {
	var (
		chunks  []string
		current string
		curLen  int
	)

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraLen := utf8.RuneCountInString(para)
		if curLen+paraLen > max && current != "" {
			chunks = append(chunks, current)
			current = para
			curLen = paraLen
			continue
		}
		if current != "" {
			current += "\n\n" + para
			curLen += paraLen
		} else {
			current = para
			curLen = paraLen
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// =============================================================================
// INDEXER
// =============================================================================

// Indexer chunks files and remembers which ones it has processed.
// Safe for concurrent use; a file watcher may re-index changed files
// while a foreground indexing pass is running.
type Indexer struct {
	mu       sync.Mutex
	read     ReadFunc
	max      int
	seen     map[string]struct{}
	progress func(done, total int, path string)
}

// NewIndexer returns an indexer reading files through read, using the
// default chunk size threshold.
func NewIndexer(read ReadFunc) *Indexer {
	return &Indexer{
		read: read,
		max:  DefaultMaxChunkSize,
		seen: make(map[string]struct{}),
	}
}

// SetProgress installs a callback invoked after each path an Index pass
// considers, skipped paths included. The callback runs with the
// indexer's lock held and must not call back into the indexer.
func (ix *Indexer) SetProgress(fn func(done, total int, path string)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.progress = fn
}

// IsIndexed reports whether path was already processed.
func (ix *Indexer) IsIndexed(path string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.seen[path]
	return ok
}

// IndexedCount returns how many files have been processed.
func (ix *Indexer) IndexedCount() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.seen)
}

// Clear forgets all processed paths. Called when the search index itself
// is reset so the next Index call re-chunks everything.
func (ix *Indexer) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.seen = make(map[string]struct{})
}

// Forget drops a single path from the processed set so the next Index
// call re-chunks it. Used when a watched file changes on disk.
func (ix *Indexer) Forget(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.seen, path)
}

// Index chunks every file not yet seen and writes the batch to sink.
// paths are relative to baseDir. A file that fails to read is reported in
// the combined error and skipped; it stays unseen so a later call retries
// it. Returns the number of chunks produced by this call.
func (ix *Indexer) Index(paths []string, baseDir string, sink Sink) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var (
		chunks []Chunk
		errs   error
	)

	for i, path := range paths {
		if _, seen := ix.seen[path]; !seen {
			content, err := ix.read(filepath.Join(baseDir, path))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			} else {
				chunks = append(chunks, ix.chunkFile(path, content)...)
				ix.seen[path] = struct{}{}
			}
		}
		if ix.progress != nil {
			ix.progress(i+1, len(paths), path)
		}
	}

	if len(chunks) > 0 {
		if err := sink.Write(chunks); err != nil {
			return 0, multierr.Append(errs, fmt.Errorf("writing index: %w", err))
		}
	}
	return len(chunks), errs
}

// chunkFile turns one file into its chunk sequence: a single whole-file
// chunk for small files, or paragraph snippets plus a whole-file chunk for
// large ones.
func (ix *Indexer) chunkFile(path, content string) []Chunk {
	name := filepath.Base(path)

	if utf8.RuneCountInString(content) < ix.max {
		return []Chunk{{
			FilePath:  path,
			FileName:  name,
			Content:   content,
			IsSnippet: false,
		}}
	}

	parts := SplitParagraphs(content, ix.max)
	chunks := make([]Chunk, 0, len(parts)+1)
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			FilePath:   path,
			FileName:   name,
			Content:    part,
			ChunkIndex: i,
			IsSnippet:  true,
		})
	}
	// Keep the full file reachable from search results of chunked files.
	chunks = append(chunks, Chunk{
		FilePath:  path,
		FileName:  name,
		Content:   content,
		IsSnippet: false,
	})
	return chunks
}
