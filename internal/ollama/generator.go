// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"sync"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/provider"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Generator adapts the Ollama client to the provider generation contract
// for one model configuration.
type Generator struct {
	client *Client
	model  string
	opts   *Options
}

// NewGenerator builds a generator bound to cfg, talking through client.
func NewGenerator(client *Client, cfg provider.ModelConfig) *Generator {
	return &Generator{
		client: client,
		model:  cfg.Name,
		opts:   optionsFrom(cfg.Params),
	}
}

// optionsFrom maps roster parameters onto Ollama inference options.
// MaxTokens becomes num_predict; zero values are omitted so the server
// defaults apply.
func optionsFrom(p provider.Params) *Options {
	if p.MaxTokens == 0 && p.Temperature == 0 && p.NumCtx == 0 {
		return nil
	}
	return &Options{
		Temperature: p.Temperature,
		NumCtx:      p.NumCtx,
		NumPredict:  p.MaxTokens,
	}
}

// Stream implements provider.Generator.
func (g *Generator) Stream(ctx context.Context, messages []chat.Message) (<-chan provider.Chunk, error) {
	in := g.client.ChatStreamChan(ctx, g.model, FromChatMessages(messages), g.opts)
	out := make(chan provider.Chunk)

	go func() {
		defer close(out)
		for sc := range in {
			if sc.Error != nil {
				out <- provider.Chunk{Err: sc.Error}
				return
			}
			out <- provider.Chunk{
				Content: sc.Content,
				Done:    sc.Done,
				Usage:   sc.Sample(),
			}
			if sc.Done {
				return
			}
		}
	}()

	return out, nil
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver builds generators for Ollama roster entries, sharing one client
// per server URL.
type Resolver struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{clients: make(map[string]*Client)}
}

// ClientFor returns the shared client for a server URL, creating it on
// first use. An empty URL means the default local endpoint.
func (r *Resolver) ClientFor(url string) *Client {
	if url == "" {
		url = DefaultBaseURL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[url]
	if !ok {
		client = NewClientWithConfig(&ClientConfig{BaseURL: url})
		r.clients[url] = client
	}
	return client
}

// Resolve implements provider.Resolver for Ollama models.
func (r *Resolver) Resolve(cfg provider.ModelConfig) (provider.Generator, error) {
	return NewGenerator(r.ClientFor(cfg.Params.ServerURL), cfg), nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog lists the models the server has installed, sorted by display
// name. The display names carry parameter size and quantization details
// when the server reports them.
func (c *Client) Catalog(ctx context.Context) ([]provider.ModelInfo, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]provider.ModelInfo, len(models))
	for i := range models {
		infos[i] = provider.ModelInfo{
			Name:        models[i].Name,
			DisplayName: models[i].DisplayName(),
		}
	}
	provider.SortModelInfos(infos)
	return infos, nil
}

// FallbackModels is the catalog shown when the server cannot be reached.
func FallbackModels() []provider.ModelInfo {
	return []provider.ModelInfo{{Name: "gemma3:27b", DisplayName: "gemma3:27b"}}
}
