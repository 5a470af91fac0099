// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	logger, err := New(dir, true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("startup", zap.String("component", "test"))
	logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Log file not created: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"startup"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("Log entry missing expected fields: %s", out)
	}
}

func TestNewDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")

	logger, err := New(dir, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("dropped")
	logger.Sync()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Disabled logger should not create the log directory")
	}
}
