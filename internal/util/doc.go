// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the quorum application.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - WriteJSONFile: Atomic indented-JSON persistence
//
// String Utilities:
//   - TruncateWidth: Display-width-aware truncation (CJK safe)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - PadRight: Width-aware padding for column layout
package util
