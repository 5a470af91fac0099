// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// bootstrap.go - Builds the wired application for the REPL, the
// subcommand handlers, and the TUI entrypoint.

package cli

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/bedrock"
	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/logging"
	"github.com/jeranaias/quorum/internal/ollama"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/search"
	"github.com/jeranaias/quorum/internal/storage"
)

// IndexFileName is the SQLite document index inside the config directory.
const IndexFileName = "index.db"

// Session is the wired application plus the resources it owns. Close
// must be called when the session ends.
type Session struct {
	App *app.App
	Cfg *config.Store
	Log *zap.Logger

	index *search.Store
}

// Close releases the session's resources.
func (s *Session) Close() {
	if s.Log != nil {
		_ = s.Log.Sync()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
}

// LoadConfig loads the configuration and applies the invocation's
// overrides. Overrides live only in memory; nothing is written back
// unless the user runs config set.
func LoadConfig(args Args) (*config.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if args.ServerURL != "" {
		cfg.Set(config.ScopeProvider("ollama"), "url", args.ServerURL)
	}
	if args.Region != "" {
		cfg.Set(config.ScopeProvider("bedrock"), "region", args.Region)
	}
	if args.DocsDir != "" {
		cfg.Set(config.ScopeGlobal, "base_directories", map[string]any{
			"documents": args.DocsDir,
			"search":    args.DocsDir,
		})
	}

	return cfg, nil
}

// NewSession wires the full application from an invocation. The search
// index is best effort: when it cannot open, search operations report
// their own error while chat keeps working.
func NewSession(args Args) (*Session, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(cfg.Path())
	log, err := logging.New(configDir, args.Verbose)
	if err != nil {
		log = zap.NewNop()
	}

	var index *search.Store
	if idx, err := search.Open(filepath.Join(configDir, IndexFileName)); err == nil {
		index = idx
	} else {
		log.Warn("search index unavailable", zap.Error(err))
	}

	chats, err := storage.NewChatStoreWithDir(cfg.ChatsDir())
	if err != nil {
		if index != nil {
			_ = index.Close()
		}
		return nil, fmt.Errorf("failed to open chat store: %w", err)
	}

	resolver := app.Resolvers{
		Ollama:  ollama.NewResolver(),
		Bedrock: bedrock.NewResolver(cfg.BedrockRegion()),
	}

	a := app.New(cfg, resolver, index, chats, log)

	seeds := args.Models
	if len(seeds) == 0 {
		seeds = cfg.DefaultModels()
	}
	for _, m := range seeds {
		kind, name := SplitModelArg(m)
		a.AddModel(kind, name, defaultParams(cfg, kind))
	}

	return &Session{App: a, Cfg: cfg, Log: log, index: index}, nil
}

// defaultParams builds a roster entry's generation parameters from the
// provider's configured defaults.
func defaultParams(cfg *config.Store, kind provider.Kind) provider.Params {
	p := provider.Params{
		MaxTokens:   cfg.ProviderMaxTokens(string(kind)),
		Temperature: cfg.ProviderTemperature(string(kind)),
	}
	switch kind {
	case provider.KindOllama:
		p.ServerURL = cfg.OllamaURL()
	case provider.KindBedrock:
		p.Region = cfg.BedrockRegion()
	}
	return p
}
