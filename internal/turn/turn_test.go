// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/quorum/internal/bedrock"
	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeGenerator streams a scripted chunk sequence, pausing delay between
// chunks and honoring context cancellation the way the real backends do.
type fakeGenerator struct {
	chunks   []provider.Chunk
	delay    time.Duration
	startErr error
}

func (g *fakeGenerator) Stream(ctx context.Context, messages []chat.Message) (<-chan provider.Chunk, error) {
	if g.startErr != nil {
		return nil, g.startErr
	}

	ch := make(chan provider.Chunk)
	go func() {
		defer close(ch)
		for _, c := range g.chunks {
			if g.delay > 0 {
				time.Sleep(g.delay)
			}
			if ctx.Err() != nil {
				ch <- provider.Chunk{Err: ctx.Err()}
				return
			}
			ch <- c
		}
	}()
	return ch, nil
}

// fakeResolver hands out generators by model ID.
type fakeResolver struct {
	gens map[string]provider.Generator
	errs map[string]error
}

func (r *fakeResolver) Resolve(cfg provider.ModelConfig) (provider.Generator, error) {
	if err := r.errs[cfg.ID]; err != nil {
		return nil, err
	}
	g, ok := r.gens[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("no generator for %s", cfg.ID)
	}
	return g, nil
}

func doneChunk(in, out int) provider.Chunk {
	return provider.Chunk{Done: true, Usage: &usage.Sample{
		InputTokens:  in,
		OutputTokens: out,
		EvalDuration: time.Second,
	}}
}

// =============================================================================
// DRAINING
// =============================================================================

type turnOutput struct {
	tokens map[string]string
	dones  map[string]*chat.AssistantMessage
	fails  map[string]string
	result *Result
}

// drain consumes the event channel to completion.
func drain(t *testing.T, events <-chan Event) turnOutput {
	t.Helper()
	out := turnOutput{
		tokens: map[string]string{},
		dones:  map[string]*chat.AssistantMessage{},
		fails:  map[string]string{},
	}
	for ev := range events {
		switch ev.Kind {
		case EventToken:
			out.tokens[ev.ModelID] += ev.Token
		case EventDone:
			out.dones[ev.ModelID] = ev.Response
		case EventFailed:
			out.fails[ev.ModelID] = ev.Friendly
		case EventTurnComplete:
			out.result = ev.Result
		}
	}
	if out.result == nil {
		t.Fatal("Turn ended without a turn-complete event")
	}
	return out
}

func effective(prompt string) []chat.Message {
	return []chat.Message{&chat.UserMessage{Text: prompt}}
}

// =============================================================================
// ORCHESTRATOR TESTS
// =============================================================================

func TestRunSingleModel(t *testing.T) {
	cfg := provider.ModelConfig{ID: "m1", Kind: provider.KindOllama, Name: "llama3"}
	resolver := &fakeResolver{gens: map[string]provider.Generator{
		"m1": &fakeGenerator{chunks: []provider.Chunk{
			{Content: "Hel"},
			{Content: "lo"},
			doneChunk(12, 40),
		}},
	}}
	tracker := usage.NewTracker()

	o := New(resolver, tracker, zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), []provider.ModelConfig{cfg}))

	if out.tokens["m1"] != "Hello" {
		t.Errorf("Streamed text = %q, want %q", out.tokens["m1"], "Hello")
	}

	resp := out.dones["m1"]
	if resp == nil {
		t.Fatal("Expected a done event for m1")
	}
	if resp.Text != "Hello" {
		t.Errorf("Response text = %q, want %q", resp.Text, "Hello")
	}
	if !resp.Selected {
		t.Error("Single-model response should default to selected")
	}
	if resp.Provider != "Ollama" || resp.ModelName != "llama3" {
		t.Errorf("Response identity = %s/%s, want Ollama/llama3", resp.Provider, resp.ModelName)
	}
	if resp.Usage == nil || resp.Usage.OutputTokens != 40 {
		t.Errorf("Response usage = %+v, want 40 output tokens", resp.Usage)
	}

	if out.result.NeedsSelection {
		t.Error("Single-model turn must not need selection")
	}
	if len(out.result.Responses) != 1 || len(out.result.Failures) != 0 {
		t.Errorf("Result = %d responses, %d failures, want 1/0",
			len(out.result.Responses), len(out.result.Failures))
	}
	if out.result.TurnID == "" {
		t.Error("Result should carry a turn ID")
	}

	stats, ok := tracker.Get("m1")
	if !ok || stats.InputTokens != 12 || stats.OutputTokens != 40 {
		t.Errorf("Tracker stats = %+v, want 12 in / 40 out", stats)
	}
}

func TestRunMultiModelRosterOrder(t *testing.T) {
	// The first model is slower, so its events arrive later; the result
	// must still list responses in roster order.
	models := []provider.ModelConfig{
		{ID: "slow", Kind: provider.KindBedrock, Name: "claude"},
		{ID: "fast", Kind: provider.KindOllama, Name: "llama3"},
	}
	resolver := &fakeResolver{gens: map[string]provider.Generator{
		"slow": &fakeGenerator{delay: 30 * time.Millisecond, chunks: []provider.Chunk{
			{Content: "slow answer"}, {Done: true},
		}},
		"fast": &fakeGenerator{chunks: []provider.Chunk{
			{Content: "fast answer"}, {Done: true},
		}},
	}}

	o := New(resolver, usage.NewTracker(), zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), models))

	if !out.result.NeedsSelection {
		t.Error("Multi-model turn must need selection")
	}
	if len(out.result.Responses) != 2 {
		t.Fatalf("Result has %d responses, want 2", len(out.result.Responses))
	}
	if out.result.Responses[0].ModelID != "slow" || out.result.Responses[1].ModelID != "fast" {
		t.Errorf("Responses out of roster order: %s, %s",
			out.result.Responses[0].ModelID, out.result.Responses[1].ModelID)
	}
	for _, resp := range out.result.Responses {
		if resp.Selected {
			t.Errorf("Multi-model response %s should start unselected", resp.ModelID)
		}
	}
}

func TestRunFailureDoesNotBlockOthers(t *testing.T) {
	models := []provider.ModelConfig{
		{ID: "bad", Kind: provider.KindOllama, Name: "broken"},
		{ID: "good", Kind: provider.KindOllama, Name: "llama3"},
	}
	resolver := &fakeResolver{
		gens: map[string]provider.Generator{
			"good": &fakeGenerator{chunks: []provider.Chunk{{Content: "ok"}, {Done: true}}},
		},
		errs: map[string]error{
			"bad": errors.New("connection refused"),
		},
	}

	o := New(resolver, usage.NewTracker(), zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), models))

	if len(out.result.Responses) != 1 || out.result.Responses[0].ModelID != "good" {
		t.Errorf("Expected only the good model's response, got %+v", out.result.Responses)
	}
	if len(out.result.Failures) != 1 || out.result.Failures[0].ModelID != "bad" {
		t.Fatalf("Expected one failure for bad, got %+v", out.result.Failures)
	}
	if !strings.HasPrefix(out.fails["bad"], "Error generating response:") {
		t.Errorf("Friendly message = %q", out.fails["bad"])
	}
	if !out.result.NeedsSelection {
		t.Error("Gate depends on models dispatched, not on successes")
	}
}

func TestRunMidStreamErrorDiscardsPartialText(t *testing.T) {
	cfg := provider.ModelConfig{ID: "m1", Kind: provider.KindOllama, Name: "llama3"}
	resolver := &fakeResolver{gens: map[string]provider.Generator{
		"m1": &fakeGenerator{chunks: []provider.Chunk{
			{Content: "partial "},
			{Err: errors.New("stream reset")},
		}},
	}}

	o := New(resolver, usage.NewTracker(), zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), []provider.ModelConfig{cfg}))

	if len(out.dones) != 0 {
		t.Error("A failed stream must not produce a response")
	}
	if len(out.result.Responses) != 0 || len(out.result.Failures) != 1 {
		t.Errorf("Result = %d responses, %d failures, want 0/1",
			len(out.result.Responses), len(out.result.Failures))
	}
}

func TestRunUsageRequiresDoneChunk(t *testing.T) {
	// A stream that closes without a done chunk reported nothing usable.
	cfg := provider.ModelConfig{ID: "m1", Kind: provider.KindOllama, Name: "llama3"}
	resolver := &fakeResolver{gens: map[string]provider.Generator{
		"m1": &fakeGenerator{chunks: []provider.Chunk{{Content: "text"}}},
	}}
	tracker := usage.NewTracker()

	o := New(resolver, tracker, zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), []provider.ModelConfig{cfg}))

	resp := out.dones["m1"]
	if resp == nil {
		t.Fatal("Expected a response")
	}
	if resp.Usage != nil {
		t.Errorf("Usage = %+v, want nil without a done chunk", resp.Usage)
	}
	if _, ok := tracker.Get("m1"); ok {
		t.Error("Tracker should not record without usage data")
	}
}

func TestRunTimeout(t *testing.T) {
	cfg := provider.ModelConfig{ID: "m1", Kind: provider.KindOllama, Name: "llama3"}
	resolver := &fakeResolver{gens: map[string]provider.Generator{
		"m1": &fakeGenerator{delay: 100 * time.Millisecond, chunks: []provider.Chunk{
			{Content: "never"}, {Content: "arrives"}, {Done: true},
		}},
	}}

	o := New(resolver, usage.NewTracker(), zap.NewNop(), 20*time.Millisecond)
	out := drain(t, o.Run(context.Background(), effective("hi"), []provider.ModelConfig{cfg}))

	if len(out.result.Failures) != 1 {
		t.Fatalf("Expected a timeout failure, got %+v", out.result)
	}
	if !errors.Is(out.result.Failures[0].Err, context.DeadlineExceeded) {
		t.Errorf("Failure error = %v, want deadline exceeded", out.result.Failures[0].Err)
	}
}

func TestRunEmptyRoster(t *testing.T) {
	o := New(&fakeResolver{}, usage.NewTracker(), zap.NewNop(), 0)
	out := drain(t, o.Run(context.Background(), effective("hi"), nil))

	if len(out.result.Responses) != 0 || len(out.result.Failures) != 0 || out.result.NeedsSelection {
		t.Errorf("Empty roster result = %+v", out.result)
	}
}

// =============================================================================
// ERROR PRESENTATION TESTS
// =============================================================================

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "generic error",
			err:  errors.New("connection refused"),
			want: []string{"Error generating response:", "connection refused"},
		},
		{
			name: "bedrock throttling",
			err:  bedrock.ErrThrottled,
			want: []string{"⚠️ AWS Bedrock throttling error occurred with claude", "`/retry`"},
		},
		{
			name: "wrapped throttling",
			err:  fmt.Errorf("operation failed: %w", bedrock.ErrThrottled),
			want: []string{"⚠️ AWS Bedrock throttling error occurred with claude", "`/retry`"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FriendlyError("claude", tt.err)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("FriendlyError = %q, missing %q", got, want)
				}
			}
		})
	}
}
