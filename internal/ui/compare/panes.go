// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// panes.go - per-model response columns for the live turn.

package compare

import (
	"strings"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
)

// paneStatus tracks one pane through a turn.
type paneStatus int

const (
	paneWaiting paneStatus = iota
	paneStreaming
	paneDone
	paneFailed
)

// Pane is one model's column during a live turn. Tokens land in the buffer
// from the stream goroutine; the UI tick moves them into content.
type Pane struct {
	ModelID string
	Title   string
	Index   int

	status   paneStatus
	buffer   *StreamingBuffer
	content  strings.Builder
	friendly string
	response *chat.AssistantMessage
}

// newPanes builds one pane per roster model, in roster order.
func newPanes(models []provider.ModelConfig) []*Pane {
	panes := make([]*Pane, 0, len(models))
	for i, m := range models {
		panes = append(panes, &Pane{
			ModelID: m.ID,
			Title:   m.DisplayName(),
			Index:   i,
			buffer:  NewStreamingBuffer(),
		})
	}
	return panes
}

// AppendToken buffers one streamed fragment.
func (p *Pane) AppendToken(token string) {
	p.status = paneStreaming
	p.buffer.Write(token)
}

// FlushDue moves batched tokens into the visible content. Returns true when
// anything moved, so the caller knows a repaint is worth it.
func (p *Pane) FlushDue() bool {
	chunk, ok := p.buffer.Flush()
	if ok {
		p.content.WriteString(chunk)
	}
	return ok
}

// Finish force-flushes and marks the pane complete.
func (p *Pane) Finish(resp *chat.AssistantMessage) {
	p.content.WriteString(p.buffer.ForceFlush())
	p.status = paneDone
	p.response = resp

	// The committed response text is authoritative; a cancelled flush tick
	// must not leave the pane short of it.
	if resp != nil && p.content.Len() < len(resp.Text) {
		p.content.Reset()
		p.content.WriteString(resp.Text)
	}
}

// Fail marks the pane failed. Partial content is dropped so the pane shows
// the error alone.
func (p *Pane) Fail(friendly string) {
	p.buffer.Reset()
	p.content.Reset()
	p.status = paneFailed
	p.friendly = friendly
}

// Text returns the visible content so far.
func (p *Pane) Text() string {
	return p.content.String()
}

// Streaming reports whether the pane is still waiting on its model.
func (p *Pane) Streaming() bool {
	return p.status == paneWaiting || p.status == paneStreaming
}
