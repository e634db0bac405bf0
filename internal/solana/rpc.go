package solana

import "context"

// RPCClient defines the subset of the Solana RPC HTTP interface used by the vault service.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a block. Returns nil if unavailable.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}
