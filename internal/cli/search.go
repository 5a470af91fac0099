// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - "quorum search" subcommand.
//
// Runs one relevance-ranked query against the document index and prints
// the matching snippets, highlighted on markdown-capable terminals.

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/search"
)

// DefaultSearchResults is how many snippets a query returns without --top.
const DefaultSearchResults = 5

// HandleSearch queries the document index from the command line.
func HandleSearch(args Args) error {
	parser := NewArgParser(args.Raw)
	query := JoinPositionalArgs(parser, 0)
	if query == "" {
		return fmt.Errorf("usage: quorum search <query> [--top N]")
	}
	topK := parser.FlagIntOrDefault("top", DefaultSearchResults)

	session, err := NewSession(args)
	if err != nil {
		return err
	}
	defer session.Close()

	results, err := session.App.SearchDocuments(query, topK)
	if err != nil {
		if errors.Is(err, app.ErrSearchUnavailable) {
			return fmt.Errorf("search index unavailable; run `quorum index` first")
		}
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println(infoStyle.Render("No matches for " + strconv.Quote(query) + "."))
		return nil
	}

	for i, res := range results {
		fmt.Printf("%s %s\n",
			commandStyle.Render(fmt.Sprintf("%d.", i+1)),
			summaryHeaderStyle.Render(res.FilePath))
		excerpt := search.Excerpt(res.Content, search.ExcerptLength)
		displayResponse(search.Highlight(excerpt, query))
		fmt.Println()
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d result(s). Re-run inside `quorum chat` to pull matches into the context.", len(results))))
	return nil
}
