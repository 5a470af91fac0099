// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger.
//
// quorum owns the terminal while running, so logs must never go to stdout or
// stderr. The logger writes structured JSON lines to quorum.log in the config
// directory; callers receive a *zap.Logger through their constructors and a
// no-op logger when logging is disabled.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file created inside the config directory.
const FileName = "quorum.log"

// New returns a file-backed logger rooted at dir. When enabled is false the
// returned logger discards everything, so call sites never need nil checks.
func New(dir string, enabled bool) (*zap.Logger, error) {
	if !enabled {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(dir, FileName)}
	cfg.ErrorOutputPaths = []string{filepath.Join(dir, FileName)}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
