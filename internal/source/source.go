// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package source reads document files for context injection and indexing.
//
// Listing walks a documents directory and returns relative paths; reading
// decodes UTF-8 with a latin-1 fallback, so legacy files never fail to load
// with a bare decode error.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// =============================================================================
// LISTING
// =============================================================================

// List returns the files under dir as sorted relative paths. When recursive
// is false only the top level is listed. The ignore set prunes directories
// by name at any depth; top-level files matching an ignored name are
// skipped too.
func List(dir string, recursive bool, ignore map[string]bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("listing %s: not a directory", dir)
	}

	var files []string

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || ignore[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore[d.Name()] {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, relPath)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, walkErr)
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// READING
// =============================================================================

// Read returns the content of a file as a string. Valid UTF-8 passes
// through unchanged; anything else is decoded as latin-1, which accepts
// every byte value.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}

	return string(decoded), nil
}
