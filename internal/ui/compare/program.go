// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// program.go - Bubble Tea program lifecycle and the async send bridge.

package compare

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quorum/internal/app"
)

// programRef lets the turn drain goroutine publish messages into the
// running program. Nil outside Run, so stray sends from a winding-down
// turn are dropped instead of panicking.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// send publishes a message to the running program, if any.
func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run starts the compare UI over a wired session and blocks until the user
// quits. version is shown in the header bar.
func Run(a *app.App, version string) error {
	m := New(a, version)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()
	defer func() {
		programMu.Lock()
		programRef = nil
		programMu.Unlock()
	}()

	_, err := p.Run()
	return err
}
