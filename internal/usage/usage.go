// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package usage accumulates per-model token and latency counters.
//
// Providers report a Sample per completed response; the Tracker keys the
// cumulative totals by model id and derives average generation speed. All
// counters survive across turns and are cleared only by a conversation
// reset.
package usage

import (
	"sync"
	"time"
)

// =============================================================================
// SAMPLES
// =============================================================================

// Sample is the usage metadata one backend reported for one response.
// Providers construct a Sample only from a completed response; a response
// without usage data carries a nil Sample.
type Sample struct {
	InputTokens  int
	OutputTokens int
	EvalDuration time.Duration
}

// TokensPerSecond returns the generation speed of this single response.
// ok is false when the backend reported no eval duration.
func (s *Sample) TokensPerSecond() (float64, bool) {
	if s.EvalDuration <= 0 {
		return 0, false
	}
	return float64(s.OutputTokens) / s.EvalDuration.Seconds(), true
}

// =============================================================================
// CUMULATIVE STATS
// =============================================================================

// Stats holds the cumulative counters for one model.
type Stats struct {
	InputTokens  int64
	OutputTokens int64
	EvalDuration time.Duration
	Responses    int
}

// AvgTokensPerSec returns cumulative output tokens over cumulative eval
// time. ok is false when no eval time has been recorded, in which case the
// caller should display "not available" rather than zero.
func (s Stats) AvgTokensPerSec() (float64, bool) {
	if s.EvalDuration <= 0 {
		return 0, false
	}
	return float64(s.OutputTokens) / s.EvalDuration.Seconds(), true
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker accumulates Stats per model id. Safe for concurrent use: the turn
// orchestrator records from per-model goroutines.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*Stats)}
}

// Record adds a sample to the model's counters. A nil sample means the
// backend reported no usage data and is a no-op.
func (t *Tracker) Record(modelID string, s *Sample) {
	if s == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stats[modelID]
	if st == nil {
		st = &Stats{}
		t.stats[modelID] = st
	}
	st.InputTokens += int64(s.InputTokens)
	st.OutputTokens += int64(s.OutputTokens)
	st.EvalDuration += s.EvalDuration
	st.Responses++
}

// Get returns a copy of one model's counters.
func (t *Tracker) Get(modelID string) (Stats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.stats[modelID]
	if !ok {
		return Stats{}, false
	}
	return *st, true
}

// Snapshot returns a copy of all counters keyed by model id.
func (t *Tracker) Snapshot() map[string]Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Stats, len(t.stats))
	for id, st := range t.stats {
		out[id] = *st
	}
	return out
}

// Reset clears every model's counters. Called on conversation reset.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*Stats)
}
