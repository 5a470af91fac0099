// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the generation contract shared by all model
// backends: model configurations, the streaming Generator interface, and
// the chunk protocol its channels speak.
//
// Backends live in their own packages (internal/ollama, internal/bedrock)
// and are bound to one model configuration at construction. The turn
// orchestrator only ever talks to the Generator interface.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// MODEL CONFIGURATION
// =============================================================================

// Kind identifies a backend. The value doubles as the provider scope name
// in configuration files.
type Kind string

const (
	KindBedrock Kind = "bedrock"
	KindOllama  Kind = "ollama"
)

// DisplayName returns the user-facing provider name.
func (k Kind) DisplayName() string {
	switch k {
	case KindBedrock:
		return "AWS Bedrock"
	case KindOllama:
		return "Ollama"
	default:
		return string(k)
	}
}

// Params are the generation parameters attached to one model
// configuration. Zero values defer to backend defaults.
type Params struct {
	MaxTokens   int
	Temperature float64
	// NumCtx sets the context window. Ollama only.
	NumCtx int
	// ServerURL overrides the backend endpoint. Ollama only.
	ServerURL string
	// Region overrides the AWS region. Bedrock only.
	Region string
}

// ModelConfig is one entry in the model roster. The same backend model may
// appear twice with different parameters; ID keeps the entries distinct.
type ModelConfig struct {
	ID   string
	Kind Kind
	// Name is the backend's model identifier.
	Name string
	// Display is an enhanced name for lists. Empty falls back to Name.
	Display string
	Params  Params
}

// NewModelConfig builds a roster entry with a fresh unique id.
func NewModelConfig(kind Kind, name string, params Params) ModelConfig {
	return ModelConfig{
		ID:     fmt.Sprintf("%s_%s_%d", kind, name, time.Now().UnixNano()),
		Kind:   kind,
		Name:   name,
		Params: params,
	}
}

// DisplayName returns the name shown in model lists and pane headers.
func (m ModelConfig) DisplayName() string {
	if m.Display != "" {
		return m.Display
	}
	return m.Name
}

// ModelInfo describes one model a backend advertises.
type ModelInfo struct {
	// Name is the identifier passed back to the backend.
	Name string
	// DisplayName may carry extra detail such as parameter size.
	DisplayName string
}

// =============================================================================
// GENERATION
// =============================================================================

// Chunk is one unit of a streamed response. Content chunks carry text;
// the terminal chunk has Done set and optionally Usage. A failed stream
// ends with a chunk whose Err is set. The channel closes after the
// terminal chunk.
type Chunk struct {
	Content string
	Done    bool
	Usage   *usage.Sample
	Err     error
}

// Generator produces responses for the one model configuration it was
// built with.
type Generator interface {
	// Stream sends the message sequence to the backend and returns a
	// channel of response chunks. The error return covers failures to
	// start the request; failures mid-stream arrive as a Chunk with Err
	// set. Cancelling ctx terminates the stream.
	Stream(ctx context.Context, messages []chat.Message) (<-chan Chunk, error)
}

// Resolver builds or reuses a Generator for a model configuration.
// Implementations cache clients per endpoint where that makes sense.
type Resolver interface {
	Resolve(cfg ModelConfig) (Generator, error)
}

// Collect drains a generator's stream into the final response text and
// usage sample. Used by non-interactive callers that have no need for
// token-by-token output.
func Collect(ctx context.Context, g Generator, messages []chat.Message) (string, *usage.Sample, error) {
	ch, err := g.Stream(ctx, messages)
	if err != nil {
		return "", nil, err
	}

	var (
		text   []byte
		sample *usage.Sample
	)
	for chunk := range ch {
		if chunk.Err != nil {
			return "", nil, chunk.Err
		}
		text = append(text, chunk.Content...)
		if chunk.Done {
			sample = chunk.Usage
		}
	}
	return string(text), sample, nil
}
