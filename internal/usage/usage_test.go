// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package usage

import (
	"sync"
	"testing"
	"time"
)

func TestSampleTokensPerSecond(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   float64
		wantOK bool
	}{
		{
			name:   "normal rate",
			sample: Sample{OutputTokens: 100, EvalDuration: 2 * time.Second},
			want:   50,
			wantOK: true,
		},
		{
			name:   "zero duration",
			sample: Sample{OutputTokens: 100},
			want:   0,
			wantOK: false,
		},
		{
			name:   "sub-second duration",
			sample: Sample{OutputTokens: 10, EvalDuration: 500 * time.Millisecond},
			want:   20,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.sample.TokensPerSecond()
			if ok != tt.wantOK {
				t.Fatalf("TokensPerSecond ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("TokensPerSecond = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackerRecord(t *testing.T) {
	tr := NewTracker()

	tr.Record("ollama_llama3_1", &Sample{InputTokens: 10, OutputTokens: 20, EvalDuration: time.Second})
	tr.Record("ollama_llama3_1", &Sample{InputTokens: 5, OutputTokens: 40, EvalDuration: 3 * time.Second})

	st, ok := tr.Get("ollama_llama3_1")
	if !ok {
		t.Fatal("Get returned ok=false for recorded model")
	}
	if st.InputTokens != 15 {
		t.Errorf("InputTokens = %d, want 15", st.InputTokens)
	}
	if st.OutputTokens != 60 {
		t.Errorf("OutputTokens = %d, want 60", st.OutputTokens)
	}
	if st.EvalDuration != 4*time.Second {
		t.Errorf("EvalDuration = %v, want 4s", st.EvalDuration)
	}
	if st.Responses != 2 {
		t.Errorf("Responses = %d, want 2", st.Responses)
	}

	avg, ok := st.AvgTokensPerSec()
	if !ok {
		t.Fatal("AvgTokensPerSec returned ok=false with nonzero duration")
	}
	if avg != 15 {
		t.Errorf("AvgTokensPerSec = %v, want 15", avg)
	}
}

func TestTrackerRecordNilSample(t *testing.T) {
	tr := NewTracker()

	tr.Record("bedrock_claude_1", nil)

	if _, ok := tr.Get("bedrock_claude_1"); ok {
		t.Error("nil sample should not create stats")
	}
}

func TestTrackerAvgUndefinedWithoutDuration(t *testing.T) {
	tr := NewTracker()

	// Some backends report token counts but no timing.
	tr.Record("bedrock_claude_1", &Sample{InputTokens: 100, OutputTokens: 200})

	st, ok := tr.Get("bedrock_claude_1")
	if !ok {
		t.Fatal("Get returned ok=false for recorded model")
	}
	if st.OutputTokens != 200 {
		t.Errorf("OutputTokens = %d, want 200", st.OutputTokens)
	}
	if _, ok := st.AvgTokensPerSec(); ok {
		t.Error("AvgTokensPerSec should report ok=false with zero duration")
	}
}

func TestTrackerSnapshotIsolation(t *testing.T) {
	tr := NewTracker()
	tr.Record("a", &Sample{OutputTokens: 1})

	snap := tr.Snapshot()
	snap["a"] = Stats{OutputTokens: 999}

	st, _ := tr.Get("a")
	if st.OutputTokens != 1 {
		t.Errorf("mutating snapshot changed tracker state: OutputTokens = %d", st.OutputTokens)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Record("a", &Sample{OutputTokens: 1})
	tr.Record("b", &Sample{OutputTokens: 2})

	tr.Reset()

	if got := len(tr.Snapshot()); got != 0 {
		t.Errorf("Snapshot after Reset has %d entries, want 0", got)
	}
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Record("shared", &Sample{OutputTokens: 1, EvalDuration: time.Millisecond})
			}
		}()
	}
	wg.Wait()

	st, ok := tr.Get("shared")
	if !ok {
		t.Fatal("Get returned ok=false after concurrent records")
	}
	if st.Responses != 800 {
		t.Errorf("Responses = %d, want 800", st.Responses)
	}
	if st.OutputTokens != 800 {
		t.Errorf("OutputTokens = %d, want 800", st.OutputTokens)
	}
}
