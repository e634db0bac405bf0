package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/oracle"
	"solana-swap-vault/internal/pricing"
	"solana-swap-vault/internal/transfer"
	"solana-swap-vault/internal/vault"
)

var (
	adminA   = domain.Identity{0xA}
	callerB  = domain.Identity{0xB}
	mintT    = domain.Identity{0x7}
	vaultPDA = domain.Identity{0xF1}
	tokenPDA = domain.Identity{0xF2}
)

type fixture struct {
	custody *transfer.Custody
	vault   *domain.Vault
	binding *domain.TokenVaultBinding
	native  *vault.NativeVault
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	custody := transfer.NewCustody()
	require.NoError(t, custody.CreditNative(adminA, 10_000))
	require.NoError(t, custody.CreditToken(mintT, callerB, 1_000_000))
	return &fixture{
		custody: custody,
		vault:   vault.Initialize(adminA, vaultPDA),
		binding: vault.InitializeBinding(adminA, mintT, tokenPDA),
		native:  vault.NewNativeVault(custody),
	}
}

func (f *fixture) fund(t *testing.T, amount uint64) {
	t.Helper()
	require.NoError(t, f.native.Deposit(context.Background(), f.vault, adminA, amount))
}

func (f *fixture) engine(t *testing.T, rate uint64) *Engine {
	t.Helper()
	s, err := pricing.NewFixedRate(rate)
	require.NoError(t, err)
	return NewEngine(s, f.custody, f.custody, nil)
}

// assertNoMovement checks that the vault and both custody accounts are unchanged.
func (f *fixture) assertNoMovement(t *testing.T, balance uint64) {
	t.Helper()
	assert.Equal(t, balance, f.vault.NativeBalance)
	assert.Equal(t, balance, f.custody.NativeBalance(vaultPDA))
	assert.Equal(t, uint64(1_000_000), f.custody.TokenBalance(mintT, callerB))
	assert.Zero(t, f.custody.TokenBalance(mintT, tokenPDA))
	assert.Zero(t, f.custody.NativeBalance(callerB))
}

func TestBuyNative_FloorDivision(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 1000)

	s, err := f.engine(t, 1000).BuyNative(context.Background(), f.vault, f.binding, callerB, 2500)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), s.AmountNative)
	assert.Equal(t, uint64(500), s.Dust)
	assert.Equal(t, uint64(1000), s.Rate)
	assert.Equal(t, uint64(998), s.BalanceAfter)
	assert.Equal(t, uint64(998), f.vault.NativeBalance)
	assert.Equal(t, uint64(2), f.custody.NativeBalance(callerB))
	assert.Equal(t, uint64(2500), f.custody.TokenBalance(mintT, tokenPDA))
}

func TestBuyNative_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.native.Deposit(ctx, f.vault, adminA, 1000))
	assert.Equal(t, uint64(1000), f.vault.NativeBalance)

	require.NoError(t, f.native.Withdraw(ctx, f.vault, adminA, 400))
	assert.Equal(t, uint64(600), f.vault.NativeBalance)

	err := f.native.Withdraw(ctx, f.vault, adminA, 700)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, uint64(600), f.vault.NativeBalance)

	s, err := f.engine(t, 1000).BuyNative(ctx, f.vault, f.binding, callerB, 600_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), s.AmountNative)
	assert.Zero(t, s.Dust)
	assert.Zero(t, f.vault.NativeBalance)
	assert.Equal(t, uint64(600), f.custody.NativeBalance(callerB))
	assert.Equal(t, uint64(400_000), f.custody.TokenBalance(mintT, callerB))
}

func TestBuyNative_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		amountToken uint64
		wantErr     error
	}{
		{"zero amount", 0, domain.ErrInvalidAmount},
		{"below one native unit", 999, domain.ErrInvalidAmount},
		{"exceeds pool", 501_000, domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(t, 500)

			s, err := f.engine(t, 1000).BuyNative(context.Background(), f.vault, f.binding, callerB, tt.amountToken)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, s)
			f.assertNoMovement(t, 500)
		})
	}
}

func TestBuyNative_OracleRejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		quote   domain.PriceQuote
		wantErr error
	}{
		{"stale", domain.PriceQuote{Price: 1000, PublishedAt: now.Unix() - 31}, domain.ErrStalePrice},
		{"zero price", domain.PriceQuote{Price: 0, PublishedAt: now.Unix()}, domain.ErrInvalidPriceFeed},
		{"negative price", domain.PriceQuote{Price: -1000, PublishedAt: now.Unix()}, domain.ErrInvalidPriceFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(t, 500)

			src := oracle.NewManualSource()
			src.Set("SOL/T", tt.quote)
			adapter := oracle.NewAdapter(src, oracle.FixedClock(now), nil)
			e := NewEngine(pricing.NewOracleFed(adapter, "SOL/T", oracle.DefaultMaxAge), f.custody, f.custody, nil)

			_, err := e.BuyNative(context.Background(), f.vault, f.binding, callerB, 2000)
			assert.ErrorIs(t, err, tt.wantErr)
			f.assertNoMovement(t, 500)
			assert.Empty(t, filterTokenOps(f.custody.Ops()))
		})
	}
}

func TestBuyNative_OracleFed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := newFixture(t)
	f.fund(t, 500)

	src := oracle.NewManualSource()
	src.Set("SOL/T", domain.PriceQuote{Price: 100_050, Exponent: -2, PublishedAt: now.Unix() - 5})
	adapter := oracle.NewAdapter(src, oracle.FixedClock(now), nil)
	e := NewEngine(pricing.NewOracleFed(adapter, "SOL/T", oracle.DefaultMaxAge), f.custody, f.custody, nil)

	s, err := e.BuyNative(context.Background(), f.vault, f.binding, callerB, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), s.Rate)
	assert.Equal(t, uint64(5), s.AmountNative)
	assert.Equal(t, uint64(495), f.vault.NativeBalance)
}

func TestBuyNative_TokenTransferFails(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 500)
	boom := errors.New("token program rejected")
	f.custody.SetFault(func(op transfer.Op) error {
		if op.Asset == mintT.String() {
			return boom
		}
		return nil
	})

	_, err := f.engine(t, 1000).BuyNative(context.Background(), f.vault, f.binding, callerB, 2000)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, boom)
	f.assertNoMovement(t, 500)
}

func TestBuyNative_PayoutFailsRefundsTokens(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 500)
	boom := errors.New("payout rejected")
	f.custody.SetFault(func(op transfer.Op) error {
		if op.Asset == transfer.AssetNative {
			return boom
		}
		return nil
	})

	_, err := f.engine(t, 1000).BuyNative(context.Background(), f.vault, f.binding, callerB, 2000)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCompensationFailed)
	f.assertNoMovement(t, 500)

	ops := filterTokenOps(f.custody.Ops())
	require.Len(t, ops, 2)
	assert.Equal(t, callerB, ops[0].From)
	assert.Equal(t, tokenPDA, ops[1].From)
	assert.Equal(t, callerB, ops[1].To)
}

func TestBuyNative_RefundFails(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 500)
	f.custody.SetFault(func(op transfer.Op) error {
		if op.Asset == transfer.AssetNative || op.From == tokenPDA {
			return errors.New("down")
		}
		return nil
	})

	_, err := f.engine(t, 1000).BuyNative(context.Background(), f.vault, f.binding, callerB, 2000)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.Equal(t, uint64(500), f.vault.NativeBalance)
}

func TestBuyNative_MissingRecords(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine(t, 1000).BuyNative(context.Background(), nil, f.binding, callerB, 2000)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	s, err := f.engine(t, 1000).Preview(context.Background(), 2500)
	require.NoError(t, err)
	assert.Equal(t, Settlement{AmountToken: 2500, AmountNative: 2, Rate: 1000, Dust: 500}, s)
	assert.Empty(t, f.custody.Ops())

	s, err = f.engine(t, 1000).Preview(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, Settlement{}, s)
}

func filterTokenOps(ops []transfer.Op) []transfer.Op {
	var out []transfer.Op
	for _, op := range ops {
		if op.Asset != transfer.AssetNative {
			out = append(out, op)
		}
	}
	return out
}
