// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// MESSAGE CONVERSION
// =============================================================================

// splitMessages converts the effective history into Converse form: system
// messages become system content blocks, everything else becomes
// alternating conversation messages.
func splitMessages(msgs []chat.Message) ([]runtimetypes.SystemContentBlock, []runtimetypes.Message) {
	var (
		system   []runtimetypes.SystemContentBlock
		messages []runtimetypes.Message
	)

	for _, m := range msgs {
		switch m.Role() {
		case chat.RoleSystem:
			system = append(system, &runtimetypes.SystemContentBlockMemberText{Value: m.Content()})
		case chat.RoleUser:
			messages = append(messages, runtimetypes.Message{
				Role:    runtimetypes.ConversationRoleUser,
				Content: []runtimetypes.ContentBlock{&runtimetypes.ContentBlockMemberText{Value: m.Content()}},
			})
		case chat.RoleAssistant:
			messages = append(messages, runtimetypes.Message{
				Role:    runtimetypes.ConversationRoleAssistant,
				Content: []runtimetypes.ContentBlock{&runtimetypes.ContentBlockMemberText{Value: m.Content()}},
			})
		}
	}
	return system, messages
}

// inferenceConfig maps roster parameters onto the Converse inference
// configuration. Zero values are omitted so service defaults apply.
func inferenceConfig(p provider.Params) *runtimetypes.InferenceConfiguration {
	if p.MaxTokens == 0 && p.Temperature == 0 {
		return nil
	}
	cfg := &runtimetypes.InferenceConfiguration{}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(p.MaxTokens))
	}
	if p.Temperature > 0 {
		cfg.Temperature = aws.Float32(float32(p.Temperature))
	}
	return cfg
}

// sampleFromUsage converts the Converse token usage block. Bedrock reports
// no generation duration, so the sample carries token counts only.
func sampleFromUsage(u *runtimetypes.TokenUsage) *usage.Sample {
	if u == nil {
		return nil
	}
	return &usage.Sample{
		InputTokens:  int(aws.ToInt32(u.InputTokens)),
		OutputTokens: int(aws.ToInt32(u.OutputTokens)),
	}
}

// =============================================================================
// CONVERSE
// =============================================================================

// Converse sends the message sequence and returns the complete response
// text with its usage sample (non-streaming).
func (c *Client) Converse(ctx context.Context, model string, msgs []chat.Message, params provider.Params) (string, *usage.Sample, error) {
	if err := c.wait(ctx); err != nil {
		return "", nil, err
	}

	system, messages := splitMessages(msgs)
	resp, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(model),
		Messages:        messages,
		System:          system,
		InferenceConfig: inferenceConfig(params),
	})
	if err != nil {
		return "", nil, wrapConverseError(err)
	}

	output, ok := resp.Output.(*runtimetypes.ConverseOutputMemberMessage)
	if !ok {
		return "", nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "unexpected Converse output type"}
	}

	var text string
	for _, block := range output.Value.Content {
		if t, ok := block.(*runtimetypes.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text, sampleFromUsage(resp.Usage), nil
}

// ConverseStream sends the message sequence and returns a channel of
// response chunks. Text deltas arrive as content chunks; the terminal
// chunk carries Done plus the usage sample from the stream metadata event.
func (c *Client) ConverseStream(ctx context.Context, model string, msgs []chat.Message, params provider.Params) (<-chan provider.Chunk, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	system, messages := splitMessages(msgs)
	resp, err := c.runtime.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(model),
		Messages:        messages,
		System:          system,
		InferenceConfig: inferenceConfig(params),
	})
	if err != nil {
		return nil, wrapConverseError(err)
	}

	ch := make(chan provider.Chunk)
	go func() {
		defer close(ch)

		stream := resp.GetStream()
		defer stream.Close()

		var sample *usage.Sample
		for event := range stream.Events() {
			switch e := event.(type) {
			case *runtimetypes.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := e.Value.Delta.(*runtimetypes.ContentBlockDeltaMemberText); ok {
					select {
					case ch <- provider.Chunk{Content: delta.Value}:
					case <-ctx.Done():
						return
					}
				}
			case *runtimetypes.ConverseStreamOutputMemberMetadata:
				// The metadata event arrives after message stop and holds
				// the token usage for the whole response.
				sample = sampleFromUsage(e.Value.Usage)
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case ch <- provider.Chunk{Err: wrapConverseError(err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case ch <- provider.Chunk{Done: true, Usage: sample}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

// wrapConverseError classifies SDK failures into client error types.
func wrapConverseError(err error) error {
	if IsThrottling(err) {
		return &ClientError{Type: ErrTypeThrottled, Message: "request was throttled by Bedrock", Cause: err}
	}
	return &ClientError{Type: ErrTypeUnknown, Message: "Bedrock request failed", Cause: err}
}
