// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
)

// =============================================================================
// STATE
// =============================================================================

// State is the conversation gate state.
type State int

const (
	// StateIdle accepts new prompt submissions.
	StateIdle State = iota
	// StateAwaitingSelection blocks submissions until one response from the
	// live run has been selected. Entered after a multi-model turn.
	StateAwaitingSelection
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSelection:
		return "awaiting_selection"
	default:
		return "unknown"
	}
}

// Sentinel errors for state machine boundary violations. These reject the
// operation without touching history.
var (
	// ErrAwaitingSelection is returned by Submit while a response selection
	// is pending.
	ErrAwaitingSelection = errors.New("select a response before sending a new prompt")

	// ErrNoSuchRun is returned when an index does not identify a user message.
	ErrNoSuchRun = errors.New("no response run at that index")

	// ErrNoSuchResponse is returned when a response offset falls outside its run.
	ErrNoSuchResponse = errors.New("response index out of range")
)

// =============================================================================
// HISTORY
// =============================================================================

// History is the append-only conversation sequence. Insertion order is
// chronological order is display order. The zero value is not usable; call
// NewHistory.
//
// History is not safe for concurrent use; the turn orchestrator serializes
// all appends (see internal/turn).
type History struct {
	messages    []Message
	lastUserIdx int
	state       State
}

// NewHistory returns an empty conversation.
func NewHistory() *History {
	return &History{lastUserIdx: -1}
}

// Messages returns the message sequence. The slice is a copy; the messages
// themselves are shared.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// At returns the message at index i.
func (h *History) At(i int) Message { return h.messages[i] }

// LastUserIndex returns the index of the most recent user message, or -1
// when no user message exists.
func (h *History) LastUserIndex() int { return h.lastUserIdx }

// State returns the current gate state.
func (h *History) State() State { return h.state }

// AwaitingSelection reports whether the selection gate is closed.
func (h *History) AwaitingSelection() bool { return h.state == StateAwaitingSelection }

// HasUserMessages reports whether any prompt has been submitted. Document
// context injection applies only to the first user message of a
// conversation, so this also answers "is injection still armed".
func (h *History) HasUserMessages() bool { return h.lastUserIdx >= 0 }

// =============================================================================
// TRANSITIONS
// =============================================================================

// Submit appends a user message. While awaiting a selection the submission
// is refused; the surrounding UI disables input, but the refusal here is
// what protects the history invariant. contextBlob is applied only when
// this is the first user message of the conversation.
func (h *History) Submit(prompt, contextBlob string) error {
	if h.state == StateAwaitingSelection {
		return ErrAwaitingSelection
	}
	if h.HasUserMessages() {
		contextBlob = ""
	}
	h.messages = append(h.messages, NewUserMessage(prompt, contextBlob))
	h.lastUserIdx = len(h.messages) - 1
	return nil
}

// RecordResponse appends one model's response to the live run. Callers
// (the turn orchestrator) decide the Selected default before appending.
func (h *History) RecordResponse(msg *AssistantMessage) {
	h.messages = append(h.messages, msg)
}

// BeginSelection closes the gate. The turn orchestrator calls this after a
// turn that dispatched to two or more models.
func (h *History) BeginSelection() {
	h.state = StateAwaitingSelection
}

// Select sets the Selected flag on one response of the run belonging to the
// user message at userIdx. Selecting a response deselects every other
// response in the same run. Selecting within the live run reopens the gate.
func (h *History) Select(userIdx, offset int, value bool) error {
	run, err := h.run(userIdx)
	if err != nil {
		return err
	}
	if offset < 0 || offset >= len(run) {
		return ErrNoSuchResponse
	}

	if value {
		for i, resp := range run {
			resp.Selected = i == offset
		}
		if userIdx == h.lastUserIdx {
			h.state = StateIdle
		}
		return nil
	}

	run[offset].Selected = false
	return nil
}

// Reset clears the conversation: all messages, the last-user index, and the
// selection gate. A reset conversation treats its next prompt as a first
// message again, so document context injection is re-armed.
func (h *History) Reset() {
	h.messages = nil
	h.lastUserIdx = -1
	h.state = StateIdle
}

// Restore replaces the message sequence with one loaded from disk,
// recomputing the last-user index. Loaded conversations always start with
// the gate open.
func (h *History) Restore(msgs []Message) {
	h.messages = msgs
	h.lastUserIdx = -1
	for i, m := range msgs {
		if m.Role() == RoleUser {
			h.lastUserIdx = i
		}
	}
	h.state = StateIdle
}

// =============================================================================
// DERIVATIONS
// =============================================================================

// Effective computes the message sequence replayed to every model on the
// next turn: the system prompt (when non-empty), every user message, and
// every assistant message that has not been deselected. The same slice is
// sent to all models of a turn.
func (h *History) Effective(systemPrompt string) []Message {
	eff := make([]Message, 0, len(h.messages)+1)
	if systemPrompt != "" {
		eff = append(eff, &SystemMessage{Text: systemPrompt})
	}
	for _, m := range h.messages {
		switch m.Role() {
		case RoleUser:
			eff = append(eff, m)
		case RoleAssistant:
			if m.IsSelected() {
				eff = append(eff, m)
			}
		}
	}
	return eff
}

// ResponsesFor returns the contiguous run of assistant responses belonging
// to the user message at userIdx. Returns nil when userIdx does not
// identify a user message.
func (h *History) ResponsesFor(userIdx int) []*AssistantMessage {
	run, err := h.run(userIdx)
	if err != nil {
		return nil
	}
	return run
}

// LiveRun returns the response run of the most recent user message.
func (h *History) LiveRun() []*AssistantMessage {
	if h.lastUserIdx < 0 {
		return nil
	}
	return h.ResponsesFor(h.lastUserIdx)
}

// SelectedResponse returns the selected response of the run at userIdx and
// its offset within the run, or (nil, -1) when nothing is selected.
func (h *History) SelectedResponse(userIdx int) (*AssistantMessage, int) {
	for i, resp := range h.ResponsesFor(userIdx) {
		if resp.Selected {
			return resp, i
		}
	}
	return nil, -1
}

// run validates userIdx and collects the assistant messages that follow it,
// stopping at the next user message or the end of the sequence.
func (h *History) run(userIdx int) ([]*AssistantMessage, error) {
	if userIdx < 0 || userIdx >= len(h.messages) {
		return nil, ErrNoSuchRun
	}
	if _, ok := h.messages[userIdx].(*UserMessage); !ok {
		return nil, ErrNoSuchRun
	}

	var run []*AssistantMessage
	for _, m := range h.messages[userIdx+1:] {
		resp, ok := m.(*AssistantMessage)
		if !ok {
			break
		}
		run = append(run, resp)
	}
	return run, nil
}
