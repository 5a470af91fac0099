// quorum - side-by-side chat across multiple language models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/quorum/internal/cli"
	"github.com/jeranaias/quorum/internal/ui/compare"
)

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		if err := runTUI(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdChat:
		if err := cli.HandleChat(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdModels:
		if err := cli.HandleModels(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdIndex:
		if err := cli.HandleIndex(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdSearch:
		if err := cli.HandleSearch(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdChats:
		if err := cli.HandleChats(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(1)
	}
}

// runTUI starts the comparison interface. An empty roster is fine here;
// the UI explains how to add models instead of refusing to start.
func runTUI(args cli.Args) error {
	if err := cli.RequiresTTY("the TUI"); err != nil {
		return err
	}

	sess, err := cli.NewSession(args)
	if err != nil {
		return err
	}
	defer sess.Close()

	return compare.Run(sess.App, cli.Version)
}
