// Package transfer defines the external asset-movement primitives the settlement
// core depends on. Each call is atomic: it either moves the full amount or nothing.
package transfer

import (
	"context"
	"errors"

	"solana-swap-vault/internal/domain"
)

// ErrInsufficientBalance is returned when the source account cannot cover a transfer.
var ErrInsufficientBalance = errors.New("transfer: insufficient source balance")

// NativeTransferer moves the native asset between accounts.
type NativeTransferer interface {
	TransferNative(ctx context.Context, from, to domain.Identity, amount uint64) error
}

// TokenTransferer moves a fungible token of the given mint between accounts.
type TokenTransferer interface {
	TransferToken(ctx context.Context, mint, from, to domain.Identity, amount uint64) error
}
