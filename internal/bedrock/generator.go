// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"context"
	"sync"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
)

// Generator adapts the Bedrock client to the provider generation contract
// for one model configuration.
type Generator struct {
	client *Client
	model  string
	params provider.Params
}

// NewGenerator builds a generator bound to cfg, talking through client.
func NewGenerator(client *Client, cfg provider.ModelConfig) *Generator {
	return &Generator{
		client: client,
		model:  cfg.Name,
		params: cfg.Params,
	}
}

// Stream implements provider.Generator.
func (g *Generator) Stream(ctx context.Context, messages []chat.Message) (<-chan provider.Chunk, error) {
	return g.client.ConverseStream(ctx, g.model, messages, g.params)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver builds generators for Bedrock roster entries, sharing one
// client per region. Clients are created lazily so the AWS configuration
// chain is only consulted once a Bedrock model is actually used.
type Resolver struct {
	// DefaultRegion applies to entries whose parameters name no region.
	DefaultRegion string
	// Pacing applies to newly created clients.
	RequestsPerSecond float64
	Burst             int

	mu      sync.Mutex
	clients map[string]*Client
}

// NewResolver returns a resolver with the given fallback region.
func NewResolver(defaultRegion string) *Resolver {
	return &Resolver{
		DefaultRegion: defaultRegion,
		clients:       make(map[string]*Client),
	}
}

// ClientFor returns the shared client for a region, creating it on first
// use.
func (r *Resolver) ClientFor(ctx context.Context, region string) (*Client, error) {
	if region == "" {
		region = r.DefaultRegion
	}
	if region == "" {
		region = DefaultRegion
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[region]; ok {
		return client, nil
	}

	client, err := NewClient(ctx, Config{
		Region:            region,
		RequestsPerSecond: r.RequestsPerSecond,
		Burst:             r.Burst,
	})
	if err != nil {
		return nil, err
	}
	r.clients[region] = client
	return client, nil
}

// Resolve implements provider.Resolver for Bedrock models.
func (r *Resolver) Resolve(cfg provider.ModelConfig) (provider.Generator, error) {
	client, err := r.ClientFor(context.Background(), cfg.Params.Region)
	if err != nil {
		return nil, err
	}
	return NewGenerator(client, cfg), nil
}
