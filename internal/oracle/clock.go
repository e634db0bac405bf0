package oracle

import (
	"context"
	"fmt"
	"time"

	"solana-swap-vault/internal/solana"
)

// Clock supplies the "now" that quote ages are measured against.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// SystemClock uses the local wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now(context.Context) (time.Time, error) {
	return time.Now(), nil
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now(context.Context) (time.Time, error) {
	return time.Time(c), nil
}

// ChainClock uses the block time of the current slot, matching what an
// on-chain program would see as the clock sysvar.
type ChainClock struct {
	rpc solana.RPCClient
}

// NewChainClock creates a clock backed by Solana RPC.
func NewChainClock(rpc solana.RPCClient) *ChainClock {
	return &ChainClock{rpc: rpc}
}

// Now returns the block time of the latest slot.
func (c *ChainClock) Now(ctx context.Context) (time.Time, error) {
	slot, err := c.rpc.GetSlot(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("get slot: %w", err)
	}
	bt, err := c.rpc.GetBlockTime(ctx, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("get block time for slot %d: %w", slot, err)
	}
	if bt == nil {
		return time.Time{}, fmt.Errorf("no block time for slot %d", slot)
	}
	return time.Unix(*bt, 0), nil
}
