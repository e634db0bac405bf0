package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/config"
	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/oracle"
	"solana-swap-vault/internal/pricing"
	"solana-swap-vault/internal/solana"
)

// Pricing bundles the active strategy with the oracle pieces behind it.
type Pricing struct {
	Strategy pricing.Strategy
	Adapter  *oracle.Adapter    // nil in fixed mode
	Oracle   *pricing.OracleFed // nil in fixed mode; same value as Strategy
}

// NewRPCClient builds the Solana HTTP client from config.
func NewRPCClient(cfg config.SolanaConfig) *solana.HTTPClient {
	return solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithCommitment(cfg.Commitment),
		solana.WithMaxRetries(cfg.MaxRetries),
		solana.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
}

// BuildPricing creates the configured pricing strategy. Stream subscriptions
// live until ctx is done; cleanup closes the WebSocket and waits for them.
func BuildPricing(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*Pricing, func(), error) {
	if cfg.Pricing.Mode == config.PricingFixed {
		s, err := pricing.NewFixedRate(cfg.Pricing.FixedRate)
		if err != nil {
			return nil, nil, err
		}
		return &Pricing{Strategy: s}, func() {}, nil
	}

	oc := cfg.Pricing.Oracle
	var rpc *solana.HTTPClient
	if cfg.Solana.RPCEndpoint != "" {
		rpc = NewRPCClient(cfg.Solana)
	}

	cleanup := func() {}
	var source oracle.Source
	switch oc.Source {
	case config.SourceRPC:
		source = oracle.NewRPCSource(rpc)

	case config.SourceStream:
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Commitment = cfg.Solana.Commitment
		wsCfg.Logger = log
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect websocket: %w", err)
		}
		stream := oracle.NewStreamSource(ws, oracle.NewRPCSource(rpc), log)
		if err := stream.Watch(ctx, oc.FeedID); err != nil {
			ws.Close()
			return nil, nil, err
		}
		source = stream
		cleanup = func() {
			if err := ws.Close(); err != nil {
				log.WithError(err).Warn("close websocket")
			}
			stream.Wait()
		}

	case config.SourceManual:
		manual := oracle.NewManualSource()
		now := time.Now().Unix()
		for _, q := range oc.Manual {
			published := q.PublishedAt
			if published == 0 {
				published = now
			}
			manual.Set(q.FeedID, domain.PriceQuote{Price: q.Price, Exponent: q.Exponent, PublishedAt: published})
		}
		source = manual

	default:
		return nil, nil, fmt.Errorf("unknown price source %q", oc.Source)
	}

	var clock oracle.Clock = oracle.SystemClock{}
	if oc.Clock == config.ClockChain {
		clock = oracle.NewChainClock(rpc)
	}

	adapter := oracle.NewAdapter(source, clock, log)
	fed := pricing.NewOracleFed(adapter, oc.FeedID, oc.MaxAge)
	return &Pricing{Strategy: fed, Adapter: adapter, Oracle: fed}, cleanup, nil
}
