// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// streaming.go - token batching between the turn stream and the renderer.

package compare

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	// DefaultBatchSize is how many tokens accumulate before a flush is due.
	DefaultBatchSize = 15

	// DefaultMaxFPS caps how often time alone can force a flush.
	DefaultMaxFPS = 30

	// flushInterval is the UI tick driving pane flushes, slightly above
	// the default FPS cap so the time threshold is met on every tick.
	flushInterval = 33 * time.Millisecond
)

// StreamingBuffer batches streamed tokens so the renderer repaints at a
// bounded rate instead of once per token. Writes come from the stream
// goroutine; flushes happen on the UI loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buf        strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize int
	maxFPS    int
}

// NewStreamingBuffer creates a buffer with the default thresholds.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		lastFlush: time.Now(),
		batchSize: DefaultBatchSize,
		maxFPS:    DefaultMaxFPS,
	}
}

// Write appends one token.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.WriteString(token)
	sb.tokenCount++
}

// Flush drains the buffer when either threshold is met: enough tokens
// accumulated, or enough time passed since the last flush. Returns false
// when nothing is due yet.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.tokenCount == 0 {
		return "", false
	}

	interval := time.Second / time.Duration(sb.maxFPS)
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < interval {
		return "", false
	}

	return sb.drain(), true
}

// ForceFlush drains the buffer regardless of thresholds. Used when a stream
// completes so no tail tokens are left behind.
func (sb *StreamingBuffer) ForceFlush() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.tokenCount == 0 {
		return ""
	}
	return sb.drain()
}

// drain returns the buffered text and resets the counters. Callers hold mu.
func (sb *StreamingBuffer) drain() string {
	content := sb.buf.String()
	sb.buf.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// Pending returns how many tokens are waiting.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

// Reset clears the buffer and its counters.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// SetBatchSize adjusts the token threshold. Values below 1 reset to 1.
func (sb *StreamingBuffer) SetBatchSize(n int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if n < 1 {
		n = 1
	}
	sb.batchSize = n
}

// SetMaxFPS adjusts the time threshold, capped at 60.
func (sb *StreamingBuffer) SetMaxFPS(fps int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if fps < 1 {
		fps = 1
	}
	if fps > 60 {
		fps = 60
	}
	sb.maxFPS = fps
}

// streamTickCmd schedules the next pane flush tick.
func streamTickCmd() tea.Cmd {
	return tea.Tick(flushInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg(t)
	})
}
