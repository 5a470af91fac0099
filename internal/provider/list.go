// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"sort"
	"strings"
)

// List is the ordered roster of models queried on every turn. Order is
// insertion order and determines response pane layout and the order
// responses are appended to history. Not safe for concurrent use.
type List struct {
	models []ModelConfig
}

// Add appends a model to the roster.
func (l *List) Add(cfg ModelConfig) {
	l.models = append(l.models, cfg)
}

// Remove deletes the model with the given id. Reports whether a model was
// removed.
func (l *List) Remove(id string) bool {
	for i, m := range l.models {
		if m.ID == id {
			l.models = append(l.models[:i], l.models[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the roster.
func (l *List) Clear() {
	l.models = nil
}

// Len returns the roster size.
func (l *List) Len() int { return len(l.models) }

// Models returns the roster in order. The slice is a copy.
func (l *List) Models() []ModelConfig {
	out := make([]ModelConfig, len(l.models))
	copy(out, l.models)
	return out
}

// ByID looks up a roster entry.
func (l *List) ByID(id string) (ModelConfig, bool) {
	for _, m := range l.models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// SortModelInfos orders a backend catalog alphabetically by display name,
// case-insensitively.
func SortModelInfos(infos []ModelInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].DisplayName) < strings.ToLower(infos[j].DisplayName)
	})
}
