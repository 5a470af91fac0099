// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"time"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// FromChatMessages converts a conversation's effective history into the
// wire form. Assistant messages are sent with their model-facing content;
// which assistants participate was already decided upstream.
func FromChatMessages(msgs []chat.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: string(m.Role()), Content: m.Content()}
	}
	return out
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"` // 0.0-2.0, default 0.8
	NumCtx      int     `json:"num_ctx,omitempty"`     // Context window size, default 2048
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens to generate, -1 for unlimited
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the response from the /api/chat endpoint.
type ChatResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Message            Message   `json:"message"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`    // number of tokens in prompt
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int       `json:"eval_count,omitempty"`           // number of tokens generated
	EvalDuration       int64     `json:"eval_duration,omitempty"`        // nanoseconds
}

// TokensPerSecond calculates the generation speed from a response.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	seconds := float64(r.EvalDuration) / 1e9
	return float64(r.EvalCount) / seconds
}

// Sample extracts the usage sample from a completed response. Returns nil
// for incomplete responses or responses without usage data.
func (r *ChatResponse) Sample() *usage.Sample {
	if !r.Done {
		return nil
	}
	if r.PromptEvalCount == 0 && r.EvalCount == 0 && r.EvalDuration == 0 {
		return nil
	}
	return &usage.Sample{
		InputTokens:  r.PromptEvalCount,
		OutputTokens: r.EvalCount,
		EvalDuration: time.Duration(r.EvalDuration),
	}
}

// apiError is the error body Ollama returns on failed requests.
type apiError struct {
	Error string `json:"error"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo contains information about a locally installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// DisplayName returns the model name annotated with parameter size and
// quantization level when known, e.g. "llama3:8b (8.0B, Q4_K_M)".
func (m *ModelInfo) DisplayName() string {
	var details []string
	if m.Details.ParameterSize != "" {
		details = append(details, m.Details.ParameterSize)
	}
	if m.Details.QuantizationLevel != "" {
		details = append(details, m.Details.QuantizationLevel)
	}
	if len(details) == 0 {
		return m.Name
	}

	name := m.Name + " ("
	for i, d := range details {
		if i > 0 {
			name += ", "
		}
		name += d
	}
	return name + ")"
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk from a streaming response.
type StreamChunk struct {
	// Content from this chunk.
	Content string

	// Timing information (only populated on final chunk)
	Done               bool
	DoneReason         string
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	// Token counts (only populated on final chunk)
	PromptTokens     int
	CompletionTokens int

	// Model information
	Model string

	// Error if any occurred during streaming
	Error error
}

// Sample extracts the usage sample from a terminal chunk. Returns nil for
// non-terminal chunks and terminal chunks without usage data.
func (c *StreamChunk) Sample() *usage.Sample {
	if !c.Done || c.Error != nil {
		return nil
	}
	if c.PromptTokens == 0 && c.CompletionTokens == 0 && c.EvalDuration == 0 {
		return nil
	}
	return &usage.Sample{
		InputTokens:  c.PromptTokens,
		OutputTokens: c.CompletionTokens,
		EvalDuration: c.EvalDuration,
	}
}
