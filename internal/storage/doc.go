// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides saved-chat persistence for quorum.
//
// A saved chat captures the full session: the message sequence with per-model
// responses and selection flags, plus the document context that was active
// when the chat was saved (selected documents, format, instructions). Loading
// a chat restores all of it, so a comparison session can be resumed exactly
// where it left off.
//
// # Key Types
//
//   - ChatStore: save, load, list, and delete chats on disk
//   - StoredChat: serializable chat session with document context
//   - ChatMeta: lightweight metadata for listing
//
// # Usage
//
// Save the live session:
//
//	store, err := storage.NewChatStore()
//	id, err := store.Save(storage.Snapshot(history, picks, format, instructions), "")
//
// List and load chats:
//
//	metas, err := store.List()
//	chat, err := store.Load(metas[0].ID)
//	history.Restore(chat.HistoryMessages())
//	picks.Restore(chat.PickItems())
//
// # Storage Location
//
// Chats are stored in ~/.quorum/chats/ as chat_YYYYMMDD_HHMMSS.json files.
// A named save uses the given name in place of the timestamp.
package storage
