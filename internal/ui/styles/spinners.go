// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/muesli/termenv"
)

// =============================================================================
// SPINNER CONFIGURATIONS
// =============================================================================

// SpinnerConfig holds the frame set and speed for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// BrailleSpinner is the default streaming indicator.
var BrailleSpinner = SpinnerConfig{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    10,
}

// DotsSpinner is a classic three-dot animation.
var DotsSpinner = SpinnerConfig{
	Frames: []string{"   ", ".  ", ".. ", "..."},
	FPS:    4,
}

// LineSpinner is an ASCII-safe fallback for limited terminals.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    8,
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// Indicators holds the status glyph set for one terminal capability level.
type Indicators struct {
	Success   string
	Error     string
	Warning   string
	Info      string
	Streaming string
	Selected  string
}

// UnicodeIndicators are used on terminals with Unicode support.
var UnicodeIndicators = Indicators{
	Success:   "✓",
	Error:     "✗",
	Warning:   "⚠",
	Info:      "ℹ",
	Streaming: "…",
	Selected:  "●",
}

// ASCIIIndicators are the fallback glyph set.
var ASCIIIndicators = Indicators{
	Success:   "[OK]",
	Error:     "[X]",
	Warning:   "[!]",
	Info:      "[i]",
	Streaming: "...",
	Selected:  "*",
}

// StatusIndicators returns the glyph set for the active color profile.
func (t *Theme) StatusIndicators() Indicators {
	if t.ColorProfile == termenv.Ascii {
		return ASCIIIndicators
	}
	return UnicodeIndicators
}
