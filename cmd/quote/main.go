// Package main fetches one price quote from the configured source, validates
// it and prints the resulting swap rate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"solana-swap-vault/internal/app"
	"solana-swap-vault/internal/config"
	"solana-swap-vault/internal/logging"
	"solana-swap-vault/internal/pricing"
)

type output struct {
	FeedID      string `json:"feed_id,omitempty"`
	Price       int64  `json:"price,omitempty"`
	Exponent    int32  `json:"exponent,omitempty"`
	PublishedAt int64  `json:"published_at,omitempty"`
	Rate        uint64 `json:"rate"`
	Pricing     string `json:"pricing"`
	AmountToken uint64 `json:"amount_token,omitempty"`
	Native      uint64 `json:"amount_native,omitempty"`
	Dust        uint64 `json:"dust,omitempty"`
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	amount := flag.Uint64("amount-token", 0, "Preview a swap of this many tokens")
	timeout := flag.Duration("timeout", 15*time.Second, "Overall timeout")
	flag.Parse()

	// The quote tool never opens storage.
	cfg, err := config.Load(*configPath, config.WithMemoryStorage(true))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	prices, cleanup, err := app.BuildPricing(ctx, cfg, logging.Discard())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building pricing: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	out := output{Pricing: prices.Strategy.Describe()}
	if prices.Adapter != nil {
		q, err := prices.Adapter.GetQuote(ctx, prices.Oracle.FeedID(), prices.Oracle.MaxAge())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Quote rejected: %v\n", err)
			os.Exit(2)
		}
		out.FeedID, out.Price, out.Exponent, out.PublishedAt = q.FeedID, q.Price, q.Exponent, q.PublishedAt
		if out.Rate, err = pricing.RateFromQuote(q); err != nil {
			fmt.Fprintf(os.Stderr, "Quote rejected: %v\n", err)
			os.Exit(2)
		}
	} else if out.Rate, err = prices.Strategy.ResolveRate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rate: %v\n", err)
		os.Exit(1)
	}

	if *amount > 0 {
		out.AmountToken = *amount
		out.Native = *amount / out.Rate
		out.Dust = *amount % out.Rate
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
