package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/idhash"
	"solana-swap-vault/internal/storage"
)

func testEntry(vault string, seq int64, kind domain.LedgerKind) *domain.LedgerEntry {
	e := &domain.LedgerEntry{
		VaultAddress: vault,
		Seq:          seq,
		Kind:         kind,
		Caller:       "CallerAddr",
		AmountNative: 2,
		AmountToken:  2500,
		Rate:         1000,
		Dust:         500,
		BalanceAfter: 998,
		Timestamp:    1700000000000 + seq,
	}
	e.EntryID = idhash.EntryIDFor(e)
	return e
}

func TestLedgerStore_AppendAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, store.Append(ctx, testEntry("V1", seq, domain.LedgerKindSwap)))
	}
	require.NoError(t, store.Append(ctx, testEntry("V2", 1, domain.LedgerKindDeposit)))

	entries, err := store.GetByVault(ctx, "V1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, testEntry("V1", 1, domain.LedgerKindSwap), entries[0])
	assert.Equal(t, int64(3), entries[2].Seq)

	page, err := store.GetByVault(ctx, "V1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].Seq)

	last, err := store.LastSeq(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)

	last, err = store.LastSeq(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestLedgerStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	e := testEntry("V1", 1, domain.LedgerKindSwap)
	require.NoError(t, store.Append(ctx, e))
	assert.ErrorIs(t, store.Append(ctx, e), storage.ErrDuplicateKey)

	sameSeq := testEntry("V1", 1, domain.LedgerKindDeposit)
	assert.ErrorIs(t, store.Append(ctx, sameSeq), storage.ErrDuplicateKey)
}

func TestLedgerStore_InvalidInput(t *testing.T) {
	store := NewLedgerStore(nil)

	err := store.Append(context.Background(), &domain.LedgerEntry{VaultAddress: "V1", Seq: 1, Kind: domain.LedgerKindSwap})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
