// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package compare implements the quorum terminal UI: one prompt fanned out
// to the whole model roster, responses streaming side by side in per-model
// panes, and a selection gate that holds the conversation until one response
// is picked as the canonical continuation.
//
// # Architecture
//
// The package is a single Bubble Tea model. Turn events arrive on a channel
// from the orchestrator; a command goroutine drains that channel and
// republishes each event as a Bubble Tea message through the running
// program, so all state changes happen on the UI loop. Token messages land
// in per-pane StreamingBuffers and are flushed to the screen on a fixed
// tick, which keeps redraw cost flat no matter how fast a backend streams.
//
// # Key Types
//
//   - Model: the Bubble Tea model (transcript, input, panes, status bar)
//   - Pane: one model's live response column during a turn
//   - StreamingBuffer: token batcher between the stream and the renderer
//
// # Usage
//
//	sess, err := cli.NewSession(args)
//	...
//	err = compare.Run(sess.App, cli.Version)
package compare
