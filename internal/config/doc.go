// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages the scoped quorum configuration.
//
// Configuration lives in one TOML file (~/.quorum/config.toml) with three
// scopes: [global] for application-wide settings, [pages.<name>] for
// per-surface settings like document formatting, and [providers.<name>]
// for backend settings like the Ollama URL or the Bedrock region. Named
// templates under ~/.quorum/templates/ can be merged over the live
// configuration.
//
// # Key Types
//
//   - Store: The loaded configuration with scoped Get/Set
//   - Scope: Addresses one table (ScopeGlobal, ScopePage, ScopeProvider)
//   - TemplateInfo: Metadata of a saved template
//
// # Usage
//
//	store, err := config.Load()
//	url := store.OllamaURL()
//	store.Set(config.ScopePage("documents"), "format", "markdown")
//	err = store.Save()
package config
