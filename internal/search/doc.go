// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides full-text search over indexed document chunks.
//
// This package stores the chunks produced by the chunk package in a
// SQLite FTS5 index and serves relevance-ranked queries over the snippet
// chunks. Whole-file chunks are stored alongside snippets so the index
// stays a complete record of what was processed, but queries return
// snippets only; a caller that wants an entire file re-reads it from
// disk.
//
// # Key Types
//
//   - Store: SQLite-backed chunk index, usable as a chunk.Sink
//   - Result: One ranked search hit
//   - Watcher: Re-indexes watched files when they change on disk
//
// # Usage
//
// Open a store and feed it through an indexer:
//
//	store, err := search.Open(dbPath)
//	indexer := chunk.NewIndexer(source.Read)
//	n, err := indexer.Index(paths, baseDir, store)
//
// Query it:
//
//	results, err := store.Query("connection pooling", search.DefaultTopK)
//	for _, r := range results {
//	    fmt.Printf("%s: %s\n", r.FilePath, search.Excerpt(r.Content, 500))
//	}
package search
