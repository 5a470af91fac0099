// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats.go - "quorum chats" subcommand.
//
// Lists saved chats, searches their message text, and deletes them.
// Loading a chat happens inside a session with /load.

package cli

import (
	"fmt"

	"github.com/jeranaias/quorum/internal/storage"
)

// HandleChats lists, searches, or deletes saved chats.
//
//	quorum chats                 list saved chats
//	quorum chats <query...>      list chats whose messages match
//	quorum chats delete <id>     delete one chat
//	quorum chats clear --force   delete every chat
func HandleChats(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	store, err := storage.NewChatStoreWithDir(cfg.ChatsDir())
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "delete", "rm":
		id := parser.Positional(1)
		if id == "" {
			return fmt.Errorf("usage: quorum chats delete <id>")
		}
		if err := store.Delete(id); err != nil {
			return fmt.Errorf("delete chat %s: %w", id, err)
		}
		fmt.Printf("%s Deleted chat %s\n", commandStyle.Render("[OK]"), id)
		return nil

	case "clear":
		if !parser.BoolFlag("force") {
			return fmt.Errorf("this deletes every saved chat; confirm with: quorum chats clear --force")
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear chats: %w", err)
		}
		fmt.Println(commandStyle.Render("[OK]") + " All saved chats deleted.")
		return nil
	}

	query := JoinPositionalArgs(parser, 0)
	metas, err := store.SearchMessages(query)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	fmt.Println(storage.FormatChatList(metas))
	if query != "" {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d chat(s) matching %q.", len(metas), query)))
	}
	if len(metas) > 0 {
		fmt.Println(mutedStyle.Render("Load one inside `quorum chat` with /load <#>."))
	}
	return nil
}
