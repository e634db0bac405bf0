package stub

import (
	"context"
	"errors"
	"sync"

	"solana-swap-vault/internal/solana"
)

// ErrNotFound is returned when a block time is not known to the stub.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu         sync.RWMutex
	Accounts   map[string]*solana.AccountInfo
	Slot       int64
	BlockTimes map[int64]int64
	// Err, when set, is returned by every call.
	Err error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:   make(map[string]*solana.AccountInfo),
		BlockTimes: make(map[int64]int64),
	}
}

// GetAccountInfo returns a copy of the stored account, or nil if absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	acc, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Slot, nil
}

// GetBlockTime returns the configured block time for slot.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	bt, ok := c.BlockTimes[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return &bt, nil
}

// SetAccount stores an account under pubkey.
func (c *RPCClient) SetAccount(pubkey string, acc *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = acc
}

// SetSlot sets the current slot and its block time.
func (c *RPCClient) SetSlot(slot, blockTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Slot = slot
	c.BlockTimes[slot] = blockTime
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
