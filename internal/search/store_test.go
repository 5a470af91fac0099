// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/quorum/internal/chunk"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snippet(path, content string, idx int) chunk.Chunk {
	return chunk.Chunk{
		FilePath:   path,
		FileName:   filepath.Base(path),
		Content:    content,
		ChunkIndex: idx,
		IsSnippet:  true,
	}
}

func whole(path, content string) chunk.Chunk {
	return chunk.Chunk{
		FilePath: path,
		FileName: filepath.Base(path),
		Content:  content,
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "search.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing after Open: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestWriteAndQuery(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("birds.md", "The falcon dives at high speed.", 0),
		snippet("birds.md", "Sparrows nest under rooftops.", 1),
		whole("birds.md", "The falcon dives at high speed.\n\nSparrows nest under rooftops."),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := s.Query("falcon", DefaultTopK)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Query returned %d results, want 1", len(results))
	}

	r := results[0]
	if r.FilePath != "birds.md" {
		t.Errorf("FilePath = %q, want birds.md", r.FilePath)
	}
	if r.FileName != "birds.md" {
		t.Errorf("FileName = %q, want birds.md", r.FileName)
	}
	if r.Content != "The falcon dives at high speed." {
		t.Errorf("Content = %q, want the matching snippet", r.Content)
	}
	if !r.IsSnippet {
		t.Error("result must be a snippet")
	}
}

func TestQueryExcludesWholeFileChunks(t *testing.T) {
	s := newTestStore(t)

	// Small files index as a single whole-file chunk, which stays out of
	// search results. Full-file pickup re-reads the file from disk.
	err := s.Write([]chunk.Chunk{
		whole("notes.md", "A kestrel hovers over the meadow."),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := s.Query("kestrel", DefaultTopK)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query returned %d results, want 0 for whole-file-only content", len(results))
	}
}

func TestQueryBlank(t *testing.T) {
	s := newTestStore(t)

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := s.Query(q, DefaultTopK)
		if err != nil {
			t.Errorf("Query(%q) failed: %v", q, err)
		}
		if len(results) != 0 {
			t.Errorf("Query(%q) returned %d results, want 0", q, len(results))
		}
	}
}

func TestQuerySpecialCharacters(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("a.md", "Parentheses and asterisks appear verbatim here.", 0),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Raw FTS5 operators in user input must not produce a syntax error.
	queries := []string{`"unbalanced`, `(star*`, `NEAR(a b)`, `col:term`, `-minus^`}
	for _, q := range queries {
		if _, err := s.Query(q, DefaultTopK); err != nil {
			t.Errorf("Query(%q) failed: %v", q, err)
		}
	}
}

func TestQueryAnyTermMatches(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("a.md", "The heron waits in shallow water.", 0),
		snippet("b.md", "An owl hunts after dusk.", 0),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := s.Query("heron owl", DefaultTopK)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Query returned %d results, want 2: a chunk matching any term ranks", len(results))
	}
}

func TestQueryTopK(t *testing.T) {
	s := newTestStore(t)

	var chunks []chunk.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, snippet("many.md", "The falcon appears in every chunk.", i))
	}
	if err := s.Write(chunks); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := s.Query("falcon", 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Query returned %d results, want 3", len(results))
	}
}

func TestQueryRankOrder(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("weak.md", "A falcon passed by the window once today.", 0),
		snippet("strong.md", "Falcon falcon falcon: the falcon page about falcons.", 0),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := s.Query("falcon", DefaultTopK)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Query returned %d results, want 2", len(results))
	}
	if results[0].FilePath != "strong.md" {
		t.Errorf("best match = %q, want strong.md first", results[0].FilePath)
	}
	if results[0].Rank > results[1].Rank {
		t.Errorf("ranks out of order: %v then %v", results[0].Rank, results[1].Rank)
	}
}

func TestDeleteFile(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("keep.md", "The falcon stays indexed.", 0),
		snippet("drop.md", "The falcon here will vanish.", 0),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := s.DeleteFile("drop.md"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	results, err := s.Query("falcon", DefaultTopK)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Query returned %d results after delete, want 1", len(results))
	}
	if results[0].FilePath != "keep.md" {
		t.Errorf("surviving result = %q, want keep.md", results[0].FilePath)
	}
}

func TestStatsAndReset(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("a.md", "first", 0),
		snippet("a.md", "second", 1),
		whole("a.md", "first\n\nsecond"),
		whole("b.md", "tiny"),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Files != 2 {
		t.Errorf("Stats.Files = %d, want 2", st.Files)
	}
	if st.Chunks != 4 {
		t.Errorf("Stats.Chunks = %d, want 4", st.Chunks)
	}
	if st.Snippets != 2 {
		t.Errorf("Stats.Snippets = %d, want 2", st.Snippets)
	}
	if st.LastIndexed.IsZero() {
		t.Error("Stats.LastIndexed must be set after a write")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	st, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats after Reset failed: %v", err)
	}
	if st.Chunks != 0 || st.Files != 0 || st.Snippets != 0 {
		t.Errorf("Stats after Reset = %+v, want empty", st)
	}
	if !st.LastIndexed.IsZero() {
		t.Error("Stats.LastIndexed must clear on Reset")
	}

	results, err := s.Query("first", DefaultTopK)
	if err != nil {
		t.Fatalf("Query after Reset failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query returned %d results after Reset, want 0", len(results))
	}
}

func TestFiles(t *testing.T) {
	s := newTestStore(t)

	err := s.Write([]chunk.Chunk{
		snippet("z.md", "zebra notes", 0),
		snippet("a.md", "aardvark notes", 0),
		whole("a.md", "aardvark notes"),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	files, err := s.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []string{"a.md", "z.md"}
	if len(files) != len(want) {
		t.Fatalf("Files returned %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestWriteEmptyBatch(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write(nil); err != nil {
		t.Fatalf("Write(nil) failed: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !st.LastIndexed.IsZero() {
		t.Error("empty write must not bump LastIndexed")
	}
}

func TestStoreAsIndexerSink(t *testing.T) {
	s := newTestStore(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("The falcon guide.\n\nCare and feeding."), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ix := chunk.NewIndexer(func(p string) (string, error) {
		b, err := os.ReadFile(p)
		return string(b), err
	})

	n, err := ix.Index([]string{"guide.md"}, dir, s)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Index produced %d chunks, want 1 whole-file chunk for a small file", n)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Files != 1 || st.Chunks != 1 {
		t.Errorf("Stats = %+v, want one chunk from one file", st)
	}
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single term", "hello", `"hello"`},
		{"two terms", "hello world", `"hello" OR "world"`},
		{"embedded quote", `he"llo`, `"he""llo"`},
		{"operators quoted", "a AND b", `"a" OR "AND" OR "b"`},
		{"empty", "", ""},
		{"whitespace only", "  \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildMatchQuery(tt.text); got != tt.want {
				t.Errorf("buildMatchQuery(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
