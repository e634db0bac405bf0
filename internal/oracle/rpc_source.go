package oracle

import (
	"context"
	"encoding/base64"
	"fmt"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/solana"
)

// RPCSource reads price accounts with getAccountInfo. The feed ID is the
// price account address.
type RPCSource struct {
	rpc solana.RPCClient
}

// NewRPCSource creates a source backed by Solana RPC.
func NewRPCSource(rpc solana.RPCClient) *RPCSource {
	return &RPCSource{rpc: rpc}
}

// Fetch reads and decodes the price account for feedID.
func (s *RPCSource) Fetch(ctx context.Context, feedID string) (domain.PriceQuote, error) {
	info, err := s.rpc.GetAccountInfo(ctx, feedID)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("get account %s: %w", feedID, err)
	}
	if info == nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: %s", ErrFeedNotFound, feedID)
	}
	return decodeAccountData(feedID, info.Data)
}

func decodeAccountData(feedID, b64 string) (domain.PriceQuote, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: decode account data: %w", domain.ErrInvalidPriceFeed, err)
	}
	acc, err := ParsePriceAccount(data)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	return acc.Quote(feedID), nil
}

// Compile-time interface check.
var _ Source = (*RPCSource)(nil)
