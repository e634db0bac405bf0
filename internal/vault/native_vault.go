// Package vault implements native-asset custody accounting and the token binding
// that records which fungible token a pool accepts.
package vault

import (
	"context"
	"fmt"
	"math"

	"solana-swap-vault/internal/authority"
	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/transfer"
)

// Initialize creates a fresh vault owned by admin with a zero balance.
func Initialize(admin, address domain.Identity) *domain.Vault {
	return &domain.Vault{
		Address:       address,
		Authority:     admin,
		NativeBalance: 0,
	}
}

// NativeVault applies deposits and withdrawals to a vault record.
// The record is mutated only after the external movement succeeds.
type NativeVault struct {
	native transfer.NativeTransferer
}

// NewNativeVault creates a NativeVault backed by the given native transfer primitive.
func NewNativeVault(native transfer.NativeTransferer) *NativeVault {
	return &NativeVault{native: native}
}

// Deposit moves amount from caller into the pool and credits the vault balance.
func (nv *NativeVault) Deposit(ctx context.Context, v *domain.Vault, caller domain.Identity, amount uint64) error {
	if v == nil {
		return fmt.Errorf("deposit: vault is nil")
	}
	if err := authority.Check(caller, v.Authority); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidAmount)
	}
	if v.NativeBalance > math.MaxUint64-amount {
		return fmt.Errorf("%w: deposit of %d overflows balance %d", domain.ErrInvalidAmount, amount, v.NativeBalance)
	}

	if err := nv.native.TransferNative(ctx, caller, v.Address, amount); err != nil {
		return fmt.Errorf("%w: deposit %d from %s: %w", domain.ErrTransferFailed, amount, caller, err)
	}

	v.NativeBalance += amount
	return nil
}

// Withdraw moves amount out of the pool to caller and debits the vault balance.
func (nv *NativeVault) Withdraw(ctx context.Context, v *domain.Vault, caller domain.Identity, amount uint64) error {
	if v == nil {
		return fmt.Errorf("withdraw: vault is nil")
	}
	if err := authority.Check(caller, v.Authority); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: withdraw amount must be positive", domain.ErrInvalidAmount)
	}
	if v.NativeBalance < amount {
		return fmt.Errorf("%w: withdraw %d exceeds balance %d", domain.ErrInsufficientFunds, amount, v.NativeBalance)
	}

	if err := nv.native.TransferNative(ctx, v.Address, caller, amount); err != nil {
		return fmt.Errorf("%w: withdraw %d to %s: %w", domain.ErrTransferFailed, amount, caller, err)
	}

	v.NativeBalance -= amount
	return nil
}
