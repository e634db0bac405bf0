// Package swap executes token-for-native exchanges against a vault.
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/observability"
	"solana-swap-vault/internal/pricing"
	"solana-swap-vault/internal/transfer"
)

// ErrCompensationFailed is returned alongside ErrTransferFailed when the
// native payout failed and the token intake could not be reversed.
var ErrCompensationFailed = errors.New("swap: token refund failed")

// Settlement describes an executed or previewed swap.
type Settlement struct {
	AmountToken  uint64
	AmountNative uint64
	Rate         uint64
	Dust         uint64 // amountToken % rate, kept by the pool
	BalanceAfter uint64
}

// Engine composes pricing with the transfer primitives.
type Engine struct {
	pricing pricing.Strategy
	native  transfer.NativeTransferer
	tokens  transfer.TokenTransferer
	log     *logrus.Entry
}

// NewEngine creates a swap engine.
func NewEngine(strategy pricing.Strategy, native transfer.NativeTransferer, tokens transfer.TokenTransferer, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		pricing: strategy,
		native:  native,
		tokens:  tokens,
		log:     log.WithField("component", "swap"),
	}
}

// Strategy returns the pricing strategy in use.
func (e *Engine) Strategy() pricing.Strategy {
	return e.pricing
}

// Preview resolves the rate and computes the payout for amountToken without
// moving anything.
func (e *Engine) Preview(ctx context.Context, amountToken uint64) (Settlement, error) {
	if amountToken == 0 {
		return Settlement{}, fmt.Errorf("%w: token amount must be positive", domain.ErrInvalidAmount)
	}

	rate, err := e.pricing.ResolveRate(ctx)
	if err != nil {
		return Settlement{}, err
	}
	if rate == 0 {
		return Settlement{}, fmt.Errorf("%w: resolved rate is zero", domain.ErrInvalidPriceFeed)
	}

	s := Settlement{
		AmountToken:  amountToken,
		AmountNative: amountToken / rate,
		Rate:         rate,
		Dust:         amountToken % rate,
	}
	if s.AmountNative == 0 {
		return Settlement{}, fmt.Errorf("%w: %d tokens buy nothing at rate %d", domain.ErrInvalidAmount, amountToken, rate)
	}
	return s, nil
}

// BuyNative takes amountToken of the bound mint from caller and pays out
// floor(amountToken / rate) native units from the vault.
//
// Either both transfers happen and the vault balance is debited, or no asset
// ends up moved and the vault is untouched. A failed payout is undone by
// returning the tokens to caller.
func (e *Engine) BuyNative(ctx context.Context, v *domain.Vault, b *domain.TokenVaultBinding, caller domain.Identity, amountToken uint64) (*Settlement, error) {
	if v == nil || b == nil {
		return nil, fmt.Errorf("buy native: vault and binding are required")
	}

	s, err := e.Preview(ctx, amountToken)
	if err != nil {
		return nil, err
	}

	if v.NativeBalance < s.AmountNative {
		return nil, fmt.Errorf("%w: payout %d exceeds balance %d", domain.ErrInsufficientFunds, s.AmountNative, v.NativeBalance)
	}

	if err := e.tokens.TransferToken(ctx, b.TokenMint, caller, b.Address, amountToken); err != nil {
		return nil, fmt.Errorf("%w: token intake %d from %s: %w", domain.ErrTransferFailed, amountToken, caller, err)
	}

	if err := e.native.TransferNative(ctx, v.Address, caller, s.AmountNative); err != nil {
		payoutErr := fmt.Errorf("%w: native payout %d to %s: %w", domain.ErrTransferFailed, s.AmountNative, caller, err)
		if refundErr := e.Refund(ctx, b, caller, amountToken); refundErr != nil {
			return nil, errors.Join(payoutErr, refundErr)
		}
		return nil, payoutErr
	}

	v.NativeBalance -= s.AmountNative
	s.BalanceAfter = v.NativeBalance

	observability.RecordSwap(s.AmountToken, s.Dust)
	return &s, nil
}

// Refund returns amountToken from the binding custody to caller. It is the
// compensating step for a token intake whose swap could not complete.
func (e *Engine) Refund(ctx context.Context, b *domain.TokenVaultBinding, caller domain.Identity, amountToken uint64) error {
	// The intake already happened; finish the reversal even if the caller's
	// context was cancelled.
	err := e.tokens.TransferToken(context.WithoutCancel(ctx), b.TokenMint, b.Address, caller, amountToken)
	observability.RecordCompensation("token_refund", err)
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"binding": b.Address.String(),
			"caller":  caller.String(),
			"amount":  amountToken,
		}).Error("token refund failed")
		return fmt.Errorf("%w: %d to %s: %w", ErrCompensationFailed, amountToken, caller, err)
	}
	return nil
}
