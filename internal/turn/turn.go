// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn drives one chat turn: it fans a single effective history out
// to every configured model, streams tokens back per model, and collects
// responses and failures into an ordered result the caller commits to the
// conversation history.
package turn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/quorum/internal/bedrock"
	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind tags the variants flowing on a turn's event channel.
type EventKind int

const (
	// EventToken carries one streamed text fragment for a model's pane.
	EventToken EventKind = iota
	// EventDone carries a model's completed response.
	EventDone
	// EventFailed reports a per-model failure. The other models continue.
	EventFailed
	// EventTurnComplete is the terminal event; the channel closes after it.
	EventTurnComplete
)

// Event is one update from a running turn. ModelID identifies which model's
// pane the event belongs to; it is empty on EventTurnComplete.
type Event struct {
	Kind    EventKind
	ModelID string

	// Token is set on EventToken.
	Token string

	// Response is set on EventDone.
	Response *chat.AssistantMessage

	// Err and Friendly are set on EventFailed. Friendly is the message to
	// show in the model's pane.
	Err      error
	Friendly string

	// Result is set on EventTurnComplete.
	Result *Result
}

// Result summarizes a finished turn. The orchestrator never mutates the
// conversation history itself; the caller commits Responses in order, which
// keeps the response run contiguous no matter how the model calls finished.
type Result struct {
	// TurnID correlates log entries for this turn.
	TurnID string

	// Responses holds the successful responses in roster order.
	Responses []*chat.AssistantMessage

	// Failures holds the failed calls in roster order.
	Failures []Failure

	// NeedsSelection is set when two or more models were dispatched,
	// whether or not all of them succeeded.
	NeedsSelection bool

	Elapsed time.Duration
}

// Failure describes one model call that produced no response.
type Failure struct {
	ModelID   string
	ModelName string
	Provider  string
	Err       error
	// Friendly is the message shown in place of the response.
	Friendly string
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// DefaultCallTimeout bounds a single model call. Generous because large
// local models can take minutes on the first token.
const DefaultCallTimeout = 5 * time.Minute

// eventBuffer sizes the event channel so token sends rarely block on the
// consumer's render loop.
const eventBuffer = 64

// Orchestrator fans one effective history out to every configured model
// and streams the results back as events.
type Orchestrator struct {
	resolver    provider.Resolver
	tracker     *usage.Tracker
	log         *zap.Logger
	callTimeout time.Duration
}

// New builds an orchestrator. A nil logger disables logging; a zero
// timeout falls back to DefaultCallTimeout.
func New(resolver provider.Resolver, tracker *usage.Tracker, log *zap.Logger, callTimeout time.Duration) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Orchestrator{
		resolver:    resolver,
		tracker:     tracker,
		log:         log,
		callTimeout: callTimeout,
	}
}

// Run dispatches one turn: the same effective history goes to every model
// in the roster, each on its own goroutine. The returned channel delivers
// EventToken/EventDone/EventFailed per model and exactly one final
// EventTurnComplete, then closes. The consumer must drain the channel.
//
// A failure in one model never blocks the others, and a per-model timeout
// keeps one stalled backend from holding the turn open forever.
func (o *Orchestrator) Run(ctx context.Context, effective []chat.Message, models []provider.ModelConfig) <-chan Event {
	events := make(chan Event, eventBuffer)
	go o.run(ctx, effective, models, events)
	return events
}

type slot struct {
	resp *chat.AssistantMessage
	fail *Failure
}

func (o *Orchestrator) run(ctx context.Context, effective []chat.Message, models []provider.ModelConfig, events chan<- Event) {
	defer close(events)

	turnID := uuid.New().String()
	start := time.Now()
	log := o.log.With(zap.String("turn_id", turnID))
	log.Info("turn dispatched",
		zap.Int("models", len(models)),
		zap.Int("history_len", len(effective)))

	// One response default: a single-model turn is selected implicitly,
	// a multi-model turn starts unselected until the user picks.
	selectedDefault := len(models) == 1

	slots := make([]slot, len(models))
	var wg sync.WaitGroup
	for i, cfg := range models {
		wg.Add(1)
		go func(i int, cfg provider.ModelConfig) {
			defer wg.Done()
			slots[i] = o.generate(ctx, log, effective, cfg, selectedDefault, events)
		}(i, cfg)
	}
	wg.Wait()

	result := &Result{
		TurnID:         turnID,
		NeedsSelection: len(models) >= 2,
		Elapsed:        time.Since(start),
	}
	for _, s := range slots {
		if s.resp != nil {
			result.Responses = append(result.Responses, s.resp)
		}
		if s.fail != nil {
			result.Failures = append(result.Failures, *s.fail)
		}
	}

	log.Info("turn completed",
		zap.Int("responses", len(result.Responses)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("elapsed", result.Elapsed))

	events <- Event{Kind: EventTurnComplete, Result: result}
}

// generate runs one model call to completion, streaming tokens as events.
func (o *Orchestrator) generate(ctx context.Context, log *zap.Logger, effective []chat.Message, cfg provider.ModelConfig, selected bool, events chan<- Event) slot {
	start := time.Now()
	log = log.With(
		zap.String("model_id", cfg.ID),
		zap.String("model", cfg.Name),
		zap.String("provider", string(cfg.Kind)))

	gen, err := o.resolver.Resolve(cfg)
	if err != nil {
		return o.fail(log, cfg, err, start, events)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	ch, err := gen.Stream(callCtx, effective)
	if err != nil {
		return o.fail(log, cfg, err, start, events)
	}

	var (
		text   strings.Builder
		sample *usage.Sample
	)
	for chunk := range ch {
		if chunk.Err != nil {
			// Partial text is discarded; the pane shows the error instead.
			return o.fail(log, cfg, chunk.Err, start, events)
		}
		if chunk.Content != "" {
			text.WriteString(chunk.Content)
			events <- Event{Kind: EventToken, ModelID: cfg.ID, Token: chunk.Content}
		}
		if chunk.Done {
			sample = chunk.Usage
		}
	}

	msg := &chat.AssistantMessage{
		Text:      text.String(),
		ModelName: cfg.DisplayName(),
		Provider:  cfg.Kind.DisplayName(),
		ModelID:   cfg.ID,
		Selected:  selected,
		Usage:     sample,
	}

	if o.tracker != nil {
		o.tracker.Record(cfg.ID, sample)
	}

	fields := []zap.Field{zap.Duration("elapsed", time.Since(start))}
	if sample != nil {
		fields = append(fields,
			zap.Int("input_tokens", sample.InputTokens),
			zap.Int("output_tokens", sample.OutputTokens))
	}
	log.Info("model call completed", fields...)

	events <- Event{Kind: EventDone, ModelID: cfg.ID, Response: msg}
	return slot{resp: msg}
}

func (o *Orchestrator) fail(log *zap.Logger, cfg provider.ModelConfig, err error, start time.Time, events chan<- Event) slot {
	log.Warn("model call failed",
		zap.Error(err),
		zap.Duration("elapsed", time.Since(start)))

	f := &Failure{
		ModelID:   cfg.ID,
		ModelName: cfg.DisplayName(),
		Provider:  cfg.Kind.DisplayName(),
		Err:       err,
		Friendly:  FriendlyError(cfg.DisplayName(), err),
	}
	events <- Event{Kind: EventFailed, ModelID: cfg.ID, Err: err, Friendly: f.Friendly}
	return slot{fail: f}
}

// =============================================================================
// ERROR PRESENTATION
// =============================================================================

// FriendlyError renders a per-model failure for display. Bedrock throttling
// gets an extended message steering the user to /retry, which replays the
// turn without appending a duplicate of the prompt.
func FriendlyError(modelName string, err error) string {
	if bedrock.IsThrottling(err) {
		return fmt.Sprintf("⚠️ AWS Bedrock throttling error occurred with %s: %v\n\n"+
			"Please try again by typing `/retry` in the chat input.", modelName, err)
	}
	return fmt.Sprintf("Error generating response: %v", err)
}
