// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// index.go - "quorum index" subcommand.
//
// Builds the full-text search index over the configured search
// directory. "quorum reindex" (or --rebuild) drops the index first;
// --watch keeps running and re-indexes files as they change.

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/progress"
	"go.uber.org/multierr"

	"github.com/jeranaias/quorum/internal/search"
)

// HandleIndex builds or rebuilds the document search index.
func HandleIndex(args Args) error {
	session, err := NewSession(args)
	if err != nil {
		return err
	}
	defer session.Close()

	store := session.App.Index()
	if store == nil {
		return fmt.Errorf("search index unavailable; check write access to the config directory")
	}

	parser := NewArgParser(args.Raw)
	rebuild := parser.BoolFlag("rebuild") || strings.EqualFold(args.Subcommand, "reindex")
	if rebuild {
		if err := store.Reset(); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		fmt.Println(infoStyle.Render("Dropped the existing index."))
	}

	searchDir := session.Cfg.SearchDir()
	if IsTTY() && !args.Quiet {
		bar := progress.New(progress.WithDefaultGradient())
		bar.Width = 30
		session.App.Indexer().SetProgress(func(done, total int, path string) {
			fmt.Printf("\r\033[K%s %d/%d %s", bar.ViewAs(float64(done)/float64(total)), done, total, path)
			if done == total {
				fmt.Print("\r\033[K")
			}
		})
	}

	chunks, err := session.App.IndexDocuments()
	session.App.Indexer().SetProgress(nil)
	if err != nil {
		// Per-file failures are collected; a partial index is still
		// usable.
		if chunks == 0 {
			return fmt.Errorf("index %s: %w", searchDir, err)
		}
		for _, ferr := range multierr.Errors(err) {
			fmt.Fprintf(os.Stderr, "%s %v\n", warningStyle.Render("[Warning]"), ferr)
		}
	}

	stats, statsErr := store.Stats()
	if statsErr != nil {
		fmt.Printf("%s Indexed %d chunk(s) from %s\n",
			commandStyle.Render("[OK]"), chunks, searchDir)
	} else {
		fmt.Printf("%s Indexed %d chunk(s); the index now holds %d file(s) and %d chunk(s).\n",
			commandStyle.Render("[OK]"), chunks, stats.Files, stats.Chunks)
	}

	if !parser.BoolFlag("watch") {
		return nil
	}
	return watchDocuments(session, searchDir)
}

// watchDocuments re-indexes files as they change until interrupted.
func watchDocuments(session *Session, root string) error {
	cfg := search.DefaultWatchConfig(root)
	cfg.IgnoreDirs = append(cfg.IgnoreDirs, session.Cfg.IgnoredDirectories()...)

	watcher, err := search.NewWatcher(session.App.Index(), session.App.Indexer(), cfg, session.Log)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	defer watcher.Close()

	if err := watcher.Watch(); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	fmt.Println(infoStyle.Render("Watching " + root + " for changes. Ctrl+C to stop."))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	return nil
}
