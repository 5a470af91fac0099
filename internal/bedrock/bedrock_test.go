// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	controltypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
)

func TestSplitMessages(t *testing.T) {
	msgs := []chat.Message{
		&chat.SystemMessage{Text: "be terse"},
		chat.NewUserMessage("question one", ""),
		&chat.AssistantMessage{Text: "answer one", Selected: true},
		chat.NewUserMessage("question two", ""),
	}

	system, conversation := splitMessages(msgs)

	if len(system) != 1 {
		t.Fatalf("system blocks = %d, want 1", len(system))
	}
	sys, ok := system[0].(*runtimetypes.SystemContentBlockMemberText)
	if !ok || sys.Value != "be terse" {
		t.Errorf("system[0] = %+v, want text block", system[0])
	}

	if len(conversation) != 3 {
		t.Fatalf("conversation messages = %d, want 3", len(conversation))
	}
	wantRoles := []runtimetypes.ConversationRole{
		runtimetypes.ConversationRoleUser,
		runtimetypes.ConversationRoleAssistant,
		runtimetypes.ConversationRoleUser,
	}
	for i, want := range wantRoles {
		if conversation[i].Role != want {
			t.Errorf("conversation[%d].Role = %q, want %q", i, conversation[i].Role, want)
		}
	}

	text, ok := conversation[1].Content[0].(*runtimetypes.ContentBlockMemberText)
	if !ok || text.Value != "answer one" {
		t.Errorf("conversation[1] content = %+v", conversation[1].Content)
	}
}

func TestInferenceConfig(t *testing.T) {
	cfg := inferenceConfig(provider.Params{MaxTokens: 4000, Temperature: 0.7})
	if cfg == nil {
		t.Fatal("inferenceConfig returned nil for populated params")
	}
	if aws.ToInt32(cfg.MaxTokens) != 4000 {
		t.Errorf("MaxTokens = %d, want 4000", aws.ToInt32(cfg.MaxTokens))
	}
	if aws.ToFloat32(cfg.Temperature) != 0.7 {
		t.Errorf("Temperature = %f, want 0.7", aws.ToFloat32(cfg.Temperature))
	}

	if inferenceConfig(provider.Params{}) != nil {
		t.Error("inferenceConfig must return nil for zero params so service defaults apply")
	}
}

func TestSampleFromUsage(t *testing.T) {
	sample := sampleFromUsage(&runtimetypes.TokenUsage{
		InputTokens:  aws.Int32(120),
		OutputTokens: aws.Int32(480),
	})
	if sample == nil {
		t.Fatal("sampleFromUsage returned nil")
	}
	if sample.InputTokens != 120 || sample.OutputTokens != 480 {
		t.Errorf("sample = %+v, want (120, 480)", sample)
	}

	// Bedrock reports no generation duration, so speed is undefined.
	if _, ok := sample.TokensPerSecond(); ok {
		t.Error("TokensPerSecond ok = true, want false without duration")
	}

	if sampleFromUsage(nil) != nil {
		t.Error("sampleFromUsage(nil) must be nil")
	}
}

func TestIsThrottling(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "typed exception",
			err:  &runtimetypes.ThrottlingException{Message: aws.String("slow down")},
			want: true,
		},
		{
			name: "wrapped operation error",
			err:  fmt.Errorf("operation error Bedrock Runtime: ConverseStream, %w", errors.New("ThrottlingException: too many requests")),
			want: true,
		},
		{
			name: "classified client error",
			err:  &ClientError{Type: ErrTypeThrottled, Message: "request was throttled by Bedrock"},
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsThrottling(tt.err); got != tt.want {
				t.Errorf("IsThrottling(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapConverseError(t *testing.T) {
	wrapped := wrapConverseError(&runtimetypes.ThrottlingException{Message: aws.String("throttled")})
	var clientErr *ClientError
	if !errors.As(wrapped, &clientErr) || clientErr.Type != ErrTypeThrottled {
		t.Errorf("wrapConverseError = %v, want throttled client error", wrapped)
	}

	wrapped = wrapConverseError(errors.New("boom"))
	if !errors.As(wrapped, &clientErr) || clientErr.Type != ErrTypeUnknown {
		t.Errorf("wrapConverseError = %v, want unknown client error", wrapped)
	}
}

func TestSupportsChat(t *testing.T) {
	active := controltypes.FoundationModelSummary{
		ModelId:          aws.String("anthropic.claude-3-5-haiku-20241022-v1:0"),
		InputModalities:  []controltypes.ModelModality{controltypes.ModelModalityText},
		OutputModalities: []controltypes.ModelModality{controltypes.ModelModalityText},
		ModelLifecycle:   &controltypes.FoundationModelLifecycle{Status: controltypes.FoundationModelLifecycleStatusActive},
	}
	if !supportsChat(active) {
		t.Error("active text/text model must pass the filter")
	}

	imageOnly := active
	imageOnly.OutputModalities = []controltypes.ModelModality{controltypes.ModelModalityImage}
	if supportsChat(imageOnly) {
		t.Error("image-output model must not pass the filter")
	}

	legacy := active
	legacy.ModelLifecycle = &controltypes.FoundationModelLifecycle{Status: controltypes.FoundationModelLifecycleStatusLegacy}
	if supportsChat(legacy) {
		t.Error("legacy model must not pass the filter")
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if len(catalog) == 0 {
		t.Fatal("DefaultCatalog is empty")
	}
	if catalog[0].Name != "us.anthropic.claude-3-7-sonnet-20250219-v1:0" {
		t.Errorf("catalog[0] = %q, want the recommended default first", catalog[0].Name)
	}
	for _, info := range catalog {
		if info.Name == "" || info.DisplayName == "" {
			t.Errorf("catalog entry with empty name: %+v", info)
		}
	}
}
