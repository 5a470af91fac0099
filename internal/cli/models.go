// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - "quorum models" subcommand.
//
// Lists the models each backend can serve right now. Ollama is queried
// live; an unreachable server falls back to a pull-suggestion list.
// Bedrock queries the account catalog and falls back to the static
// catalog when the AWS credential chain is not configured.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/quorum/internal/bedrock"
	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/ollama"
	"github.com/jeranaias/quorum/internal/provider"
)

// catalogTimeout bounds the per-backend model listing calls.
const catalogTimeout = 5 * time.Second

// HandleModels lists available models for every configured backend.
func HandleModels(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	printOllamaCatalog(ctx, cfg)
	fmt.Println()
	printBedrockCatalog(ctx, cfg)

	fmt.Println()
	fmt.Println(mutedStyle.Render("Compare models with: quorum chat -m NAME -m bedrock:MODEL_ID"))
	return nil
}

func printOllamaCatalog(ctx context.Context, cfg *config.Store) {
	url := cfg.OllamaURL()
	fmt.Printf("%s %s\n", summaryHeaderStyle.Render("Ollama"), mutedStyle.Render(url))

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
	infos, err := client.Catalog(ctx)
	if err != nil {
		fmt.Printf("  %s\n", warningStyle.Render("server unreachable; showing suggestions (`ollama pull NAME` to install)"))
		infos = ollama.FallbackModels()
	}
	printCatalog(infos)
}

func printBedrockCatalog(ctx context.Context, cfg *config.Store) {
	region := cfg.BedrockRegion()
	fmt.Printf("%s %s\n", summaryHeaderStyle.Render("AWS Bedrock"), mutedStyle.Render(region))

	client, err := bedrock.NewClient(ctx, bedrock.Config{Region: region})
	var infos []provider.ModelInfo
	if err == nil {
		infos, err = client.Catalog(ctx)
	}
	if err != nil {
		fmt.Printf("  %s\n", warningStyle.Render("account catalog unavailable; showing the common models"))
		infos = bedrock.DefaultCatalog()
	}
	printCatalog(infos)
}

func printCatalog(infos []provider.ModelInfo) {
	if len(infos) == 0 {
		fmt.Println(infoStyle.Render("  (none)"))
		return
	}
	for _, info := range infos {
		display := info.DisplayName
		if display == "" || display == info.Name {
			fmt.Printf("  %s\n", info.Name)
			continue
		}
		fmt.Printf("  %-45s %s\n", info.Name, mutedStyle.Render(display))
	}
}
