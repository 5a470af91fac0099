// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable visual blocks of the quorum TUI:
// the header bar, the status bar, syntax-highlighted code blocks, and the
// error notice box. Components hold their own display state and render with
// lip gloss; they never touch the conversation engine directly.
//
// # Key Types
//
//   - Header: top bar with the roster tags and the selection gate badge
//   - StatusBar: width-adaptive bottom bar (state, usage, shortcuts)
//   - CodeBlock: chroma-highlighted fenced code with line numbers
//   - ErrorBox: titled error notice with an optional tip line
//
// # Usage
//
//	header := components.NewHeader("0.1.0")
//	header.SetWidth(120)
//	header.SetModels([]string{"llama3.2", "Claude Sonnet"})
//	fmt.Println(header.View())
package components
