package transfer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"solana-swap-vault/internal/domain"
)

// AssetNative labels native-asset operations passed to a FaultFunc.
const AssetNative = "native"

// Op describes one transfer attempt.
type Op struct {
	Asset  string // AssetNative or the token mint in base58
	From   domain.Identity
	To     domain.Identity
	Amount uint64
}

// FaultFunc is consulted before every transfer. A non-nil return aborts the transfer.
type FaultFunc func(op Op) error

type tokenKey struct {
	mint  domain.Identity
	owner domain.Identity
}

// Custody is an in-memory ledger implementing both NativeTransferer and TokenTransferer.
// It stands in for the chain's transfer primitives in tests and development runs.
type Custody struct {
	mu     sync.Mutex
	native map[domain.Identity]uint64
	tokens map[tokenKey]uint64
	fault  FaultFunc
	ops    []Op
}

// NewCustody creates an empty custody ledger.
func NewCustody() *Custody {
	return &Custody{
		native: make(map[domain.Identity]uint64),
		tokens: make(map[tokenKey]uint64),
	}
}

// SetFault installs a fault injector. Pass nil to clear it.
func (c *Custody) SetFault(f FaultFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = f
}

// CreditNative mints native balance to owner outside of any transfer.
func (c *Custody) CreditNative(owner domain.Identity, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.native[owner]
	if cur > math.MaxUint64-amount {
		return fmt.Errorf("credit native %s: balance overflow", owner)
	}
	c.native[owner] = cur + amount
	return nil
}

// CreditToken mints token balance to owner outside of any transfer.
func (c *Custody) CreditToken(mint, owner domain.Identity, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tokenKey{mint: mint, owner: owner}
	cur := c.tokens[key]
	if cur > math.MaxUint64-amount {
		return fmt.Errorf("credit token %s for %s: balance overflow", mint, owner)
	}
	c.tokens[key] = cur + amount
	return nil
}

// NativeBalance returns the native balance held by owner.
func (c *Custody) NativeBalance(owner domain.Identity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.native[owner]
}

// TokenBalance returns the token balance of mint held by owner.
func (c *Custody) TokenBalance(mint, owner domain.Identity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[tokenKey{mint: mint, owner: owner}]
}

// Ops returns a copy of all successful transfers in order.
func (c *Custody) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Op, len(c.ops))
	copy(out, c.ops)
	return out
}

// TransferNative moves amount of the native asset from one account to another.
func (c *Custody) TransferNative(ctx context.Context, from, to domain.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	op := Op{Asset: AssetNative, From: from, To: to, Amount: amount}
	if c.fault != nil {
		if err := c.fault(op); err != nil {
			return err
		}
	}

	if c.native[from] < amount {
		return fmt.Errorf("%w: native %s has %d, needs %d", ErrInsufficientBalance, from, c.native[from], amount)
	}
	if from != to && c.native[to] > math.MaxUint64-amount {
		return fmt.Errorf("transfer native to %s: balance overflow", to)
	}

	c.native[from] -= amount
	c.native[to] += amount
	c.ops = append(c.ops, op)
	return nil
}

// TransferToken moves amount of mint from one account to another.
func (c *Custody) TransferToken(ctx context.Context, mint, from, to domain.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	op := Op{Asset: mint.String(), From: from, To: to, Amount: amount}
	if c.fault != nil {
		if err := c.fault(op); err != nil {
			return err
		}
	}

	src := tokenKey{mint: mint, owner: from}
	dst := tokenKey{mint: mint, owner: to}
	if c.tokens[src] < amount {
		return fmt.Errorf("%w: token %s of %s has %d, needs %d", ErrInsufficientBalance, mint, from, c.tokens[src], amount)
	}
	if from != to && c.tokens[dst] > math.MaxUint64-amount {
		return fmt.Errorf("transfer token to %s: balance overflow", to)
	}

	c.tokens[src] -= amount
	c.tokens[dst] += amount
	c.ops = append(c.ops, op)
	return nil
}

// Verify interface compliance at compile time.
var (
	_ NativeTransferer = (*Custody)(nil)
	_ TokenTransferer  = (*Custody)(nil)
)
