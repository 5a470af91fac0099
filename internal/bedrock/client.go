// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bedrock provides the AWS Bedrock backend: model discovery
// through the control-plane API and chat generation through the Converse
// runtime API, adapted to the provider generation contract.
//
// Credentials come from the standard AWS chain (environment, shared
// config, instance roles). Requests are paced by a client-side rate
// limiter since Bedrock throttles aggressively under parallel multi-model
// dispatch.
package bedrock

import (
	"context"
	"errors"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	controltypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"golang.org/x/time/rate"

	"github.com/jeranaias/quorum/internal/provider"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Bedrock client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotConfigured
	ErrTypeThrottled
	ErrTypeAccessDenied
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = &ClientError{Type: ErrTypeNotConfigured, Message: "AWS credentials not configured"}
	ErrThrottled     = &ClientError{Type: ErrTypeThrottled, Message: "request was throttled by Bedrock"}
)

// IsThrottling checks if an error is a Bedrock throttling error. Detects
// both the typed SDK exception and the exception name embedded in wrapped
// operation errors.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}
	var throttled *runtimetypes.ThrottlingException
	if errors.As(err, &throttled) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrTypeThrottled {
		return true
	}
	return strings.Contains(err.Error(), "ThrottlingException")
}

// IsNotConfigured checks if an error indicates missing AWS configuration.
func IsNotConfigured(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotConfigured
	}
	return errors.Is(err, ErrNotConfigured)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultRegion is used when neither the model parameters nor the
// configuration name a region.
const DefaultRegion = "us-east-1"

// Config holds configuration options for the Bedrock client.
type Config struct {
	// Region is the AWS region (default: DefaultRegion)
	Region string

	// RequestsPerSecond paces outgoing Converse calls (default: 1)
	RequestsPerSecond float64

	// Burst allows short request bursts above the sustained rate
	// (default: 2)
	Burst int
}

func (c *Config) fillDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 1
	}
	if c.Burst == 0 {
		c.Burst = 2
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client wraps the Bedrock control-plane and runtime APIs for one region.
// Safe for concurrent use; the shared limiter paces all callers.
type Client struct {
	runtime *bedrockruntime.Client
	control *bedrock.Client
	limiter *rate.Limiter
	region  string
}

// NewClient loads the AWS configuration chain and builds a client for the
// configured region.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg.fillDefaults()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNotConfigured, Message: "failed to load AWS configuration", Cause: err}
	}

	return &Client{
		runtime: bedrockruntime.NewFromConfig(awsCfg),
		control: bedrock.NewFromConfig(awsCfg),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		region:  cfg.Region,
	}, nil
}

// Region returns the region this client targets.
func (c *Client) Region() string {
	return c.region
}

// wait blocks until the limiter admits another request.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "rate limiter interrupted", Cause: err}
	}
	return nil
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Catalog lists the active text-to-text foundation models in the region.
// Falls back on the caller to use DefaultCatalog when this fails.
func (c *Client) Catalog(ctx context.Context) ([]provider.ModelInfo, error) {
	resp, err := c.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to list foundation models", Cause: err}
	}

	var infos []provider.ModelInfo
	for _, summary := range resp.ModelSummaries {
		if !supportsChat(summary) {
			continue
		}
		id := ""
		if summary.ModelId != nil {
			id = *summary.ModelId
		}
		if id == "" {
			continue
		}
		infos = append(infos, provider.ModelInfo{Name: id, DisplayName: id})
	}

	if len(infos) == 0 {
		return DefaultCatalog(), nil
	}
	provider.SortModelInfos(infos)
	return infos, nil
}

// supportsChat filters the model list to active models that take text in
// and produce text out.
func supportsChat(summary controltypes.FoundationModelSummary) bool {
	if summary.ModelLifecycle == nil || summary.ModelLifecycle.Status != controltypes.FoundationModelLifecycleStatusActive {
		return false
	}
	return hasTextModality(summary.InputModalities) && hasTextModality(summary.OutputModalities)
}

func hasTextModality(modalities []controltypes.ModelModality) bool {
	for _, m := range modalities {
		if m == controltypes.ModelModalityText {
			return true
		}
	}
	return false
}

// DefaultCatalog is the static model list used when the control-plane API
// is unreachable. The first entry is the recommended default.
func DefaultCatalog() []provider.ModelInfo {
	ids := []string{
		"us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		"anthropic.claude-3-5-sonnet-20241022-v2:0",
		"anthropic.claude-3-5-haiku-20241022-v1:0",
		"amazon.nova-pro-v1:0",
		"amazon.nova-lite-v1:0",
		"meta.llama3-70b-instruct-v1:0",
		"mistral.mistral-large-2402-v1:0",
	}

	infos := make([]provider.ModelInfo, len(ids))
	for i, id := range ids {
		infos[i] = provider.ModelInfo{Name: id, DisplayName: id}
	}
	return infos
}
