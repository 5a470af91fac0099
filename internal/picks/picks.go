// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picks holds the search results and documents a user has selected
// for injection into the next conversation's context.
//
// The buffer orders items by the time they were accepted, not by insertion
// order: items restored from a saved chat arrive out of order and carry
// their original timestamps.
package picks

import (
	"sort"
	"time"
)

// Item is one selected document or snippet.
type Item struct {
	// Path is the file path the content came from.
	Path    string
	Content string
	// Timestamp is when the item was accepted into the buffer.
	Timestamp time.Time
	// IsSnippet is true for paragraph snippets, false for whole files.
	IsSnippet bool
}

// DisplayName returns the path, marking snippets so two selections from
// the same file are distinguishable in lists.
func (it Item) DisplayName() string {
	if it.IsSnippet {
		return it.Path + " (snippet)"
	}
	return it.Path
}

// Buffer accumulates selected items. The zero value is ready to use.
// Not safe for concurrent use.
type Buffer struct {
	items []Item
}

// Add accepts a new selection. Exact (path, content) duplicates are
// ignored. Adding a whole file first evicts every existing item from the
// same path, so a file supersedes its own snippets.
func (b *Buffer) Add(path, content string, isSnippet bool) {
	for _, it := range b.items {
		if it.Path == path && it.Content == content {
			return
		}
	}

	if !isSnippet {
		kept := b.items[:0]
		for _, it := range b.items {
			if it.Path != path {
				kept = append(kept, it)
			}
		}
		b.items = kept
	}

	b.items = append(b.items, Item{
		Path:      path,
		Content:   content,
		Timestamp: time.Now(),
		IsSnippet: isSnippet,
	})
	b.sort()
}

// Remove deletes the item at index in timestamp order. Out-of-range
// indexes are ignored.
func (b *Buffer) Remove(index int) {
	if index < 0 || index >= len(b.items) {
		return
	}
	b.items = append(b.items[:index], b.items[index+1:]...)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.items = nil
}

// Len returns the number of selected items.
func (b *Buffer) Len() int { return len(b.items) }

// Items returns the selections sorted by acceptance time, oldest first.
// The slice is a copy.
func (b *Buffer) Items() []Item {
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// Restore replaces the buffer contents with items loaded from a saved
// chat, keeping their original timestamps.
func (b *Buffer) Restore(items []Item) {
	b.items = make([]Item, len(items))
	copy(b.items, items)
	b.sort()
}

// sort keeps the backing slice in timestamp order. Stable so same-instant
// additions keep their relative order.
func (b *Buffer) sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		return b.items[i].Timestamp.Before(b.items[j].Timestamp)
	})
}
