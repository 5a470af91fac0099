// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chunk

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

type memSink struct {
	chunks []Chunk
	err    error
}

func (s *memSink) Write(chunks []Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func mapReader(files map[string]string) ReadFunc {
	return func(path string) (string, error) {
		content, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return content, nil
	}
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "single paragraph",
			text: "hello world",
			max:  100,
			want: []string{"hello world"},
		},
		{
			name: "paragraphs packed under limit",
			text: "aaa\n\nbbb",
			max:  100,
			want: []string{"aaa\n\nbbb"},
		},
		{
			name: "split at limit",
			text: "aaaa\n\nbbbb\n\ncccc",
			max:  9,
			want: []string{"aaaa\n\nbbbb", "cccc"},
		},
		{
			name: "oversized paragraph kept whole",
			text: "short\n\n" + strings.Repeat("x", 50),
			max:  10,
			want: []string{"short", strings.Repeat("x", 50)},
		},
		{
			name: "whitespace-only paragraphs skipped",
			text: "aaa\n\n   \n\nbbb",
			max:  100,
			want: []string{"aaa\n\nbbb"},
		},
		{
			name: "separator with interior whitespace",
			text: "aaa\n \t \nbbb",
			max:  3,
			want: []string{"aaa", "bbb"},
		},
		{
			name: "empty input",
			text: "",
			max:  100,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParagraphs(tt.text, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitParagraphs returned %d chunks, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIndexSmallFile(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/notes.md": "short note",
	}))
	sink := &memSink{}

	n, err := ix.Index([]string{"notes.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Index produced %d chunks, want 1", n)
	}

	c := sink.chunks[0]
	if c.IsSnippet {
		t.Error("small file chunk must not be a snippet")
	}
	if c.FilePath != "notes.md" || c.FileName != "notes.md" {
		t.Errorf("chunk paths = (%q, %q), want notes.md", c.FilePath, c.FileName)
	}
	if c.Content != "short note" {
		t.Errorf("chunk content = %q, want full file", c.Content)
	}
}

func TestIndexLargeFile(t *testing.T) {
	content := strings.Repeat("a", 3000) + "\n\n" + strings.Repeat("b", 3000)
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/guide/big.md": content,
	}))
	sink := &memSink{}

	n, err := ix.Index([]string{"guide/big.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Index produced %d chunks, want 2 snippets + whole file", n)
	}

	for i := 0; i < 2; i++ {
		c := sink.chunks[i]
		if !c.IsSnippet {
			t.Errorf("chunk[%d].IsSnippet = false, want true", i)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk[%d].ChunkIndex = %d, want %d", i, c.ChunkIndex, i)
		}
		if c.FileName != "big.md" {
			t.Errorf("chunk[%d].FileName = %q, want big.md", i, c.FileName)
		}
	}

	whole := sink.chunks[2]
	if whole.IsSnippet {
		t.Error("final chunk of a large file must be the whole-file chunk")
	}
	if whole.Content != content {
		t.Error("whole-file chunk content differs from original file")
	}
}

func TestIndexIdempotent(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/a.md": "alpha",
		"/docs/b.md": "beta",
	}))
	sink := &memSink{}

	n, err := ix.Index([]string{"a.md", "b.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("first Index failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("first Index produced %d chunks, want 2", n)
	}

	n, err = ix.Index([]string{"a.md", "b.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("second Index failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second Index produced %d chunks, want 0", n)
	}
	if len(sink.chunks) != 2 {
		t.Errorf("sink holds %d chunks after re-index, want 2", len(sink.chunks))
	}
}

func TestIndexReadErrorContinues(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/good.md": "fine",
	}))
	sink := &memSink{}

	n, err := ix.Index([]string{"missing.md", "good.md"}, "/docs", sink)
	if err == nil {
		t.Fatal("Index must report the unreadable file")
	}
	if !strings.Contains(err.Error(), "missing.md") {
		t.Errorf("error %q does not name the failed file", err)
	}
	if len(multierr.Errors(err)) != 1 {
		t.Errorf("got %d errors, want 1", len(multierr.Errors(err)))
	}
	if n != 1 {
		t.Errorf("Index produced %d chunks, want 1 from the readable file", n)
	}

	// The failed file stays unseen so a later pass can retry it.
	if ix.IsIndexed("missing.md") {
		t.Error("unreadable file must not be marked indexed")
	}
	if !ix.IsIndexed("good.md") {
		t.Error("readable file must be marked indexed")
	}
}

func TestIndexSinkError(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/a.md": "alpha",
	}))
	sink := &memSink{err: errors.New("disk full")}

	n, err := ix.Index([]string{"a.md"}, "/docs", sink)
	if err == nil {
		t.Fatal("Index must surface sink failure")
	}
	if n != 0 {
		t.Errorf("Index reported %d chunks despite sink failure, want 0", n)
	}
}

func TestIndexerClear(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/a.md": "alpha",
	}))
	sink := &memSink{}

	if _, err := ix.Index([]string{"a.md"}, "/docs", sink); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if ix.IndexedCount() != 1 {
		t.Fatalf("IndexedCount = %d, want 1", ix.IndexedCount())
	}

	ix.Clear()

	if ix.IndexedCount() != 0 {
		t.Errorf("IndexedCount after Clear = %d, want 0", ix.IndexedCount())
	}
	n, err := ix.Index([]string{"a.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("Index after Clear failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Index after Clear produced %d chunks, want 1", n)
	}
}

func TestIndexerForget(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/a.md": "alpha",
		"/docs/b.md": "beta",
	}))
	sink := &memSink{}

	if _, err := ix.Index([]string{"a.md", "b.md"}, "/docs", sink); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	ix.Forget("a.md")

	if ix.IsIndexed("a.md") {
		t.Error("forgotten file must not report as indexed")
	}
	if !ix.IsIndexed("b.md") {
		t.Error("Forget must leave other files indexed")
	}

	n, err := ix.Index([]string{"a.md", "b.md"}, "/docs", sink)
	if err != nil {
		t.Fatalf("Index after Forget failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Index after Forget produced %d chunks, want 1", n)
	}
}

func TestIndexerProgress(t *testing.T) {
	ix := NewIndexer(mapReader(map[string]string{
		"/docs/a.md": "alpha",
		"/docs/b.md": "beta",
		"/docs/c.md": "gamma",
	}))
	sink := &memSink{}

	if _, err := ix.Index([]string{"a.md"}, "/docs", sink); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	var calls []string
	ix.SetProgress(func(done, total int, path string) {
		calls = append(calls, fmt.Sprintf("%d/%d %s", done, total, path))
	})

	// a.md is already indexed; progress still reports it so the bar
	// reaches total.
	if _, err := ix.Index([]string{"a.md", "b.md", "c.md"}, "/docs", sink); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	want := []string{"1/3 a.md", "2/3 b.md", "3/3 c.md"}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %q, want %q", i, calls[i], want[i])
		}
	}

	ix.SetProgress(nil)
	calls = nil
	if _, err := ix.Index([]string{"b.md"}, "/docs", sink); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("cleared progress callback still fired %d times", len(calls))
	}
}
