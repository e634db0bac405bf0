package postgres

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

func testRecords(seed byte) (*domain.Vault, *domain.TokenVaultBinding) {
	admin := domain.Identity{seed, 0xAA}
	v := &domain.Vault{Address: domain.Identity{seed, 1}, Authority: admin}
	b := &domain.TokenVaultBinding{Address: domain.Identity{seed, 2}, Authority: admin, TokenMint: domain.Identity{0x77}}
	return v, b
}

func TestVaultStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVaultStore(pool)
	ctx := context.Background()
	v, b := testRecords(1)

	require.NoError(t, store.Create(ctx, v, b))

	gotV, err := store.GetVault(ctx, v.Address)
	require.NoError(t, err)
	assert.Equal(t, v, gotV)

	gotB, err := store.GetBinding(ctx, b.Address)
	require.NoError(t, err)
	assert.Equal(t, b, gotB)
}

func TestVaultStore_CreateDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVaultStore(pool)
	ctx := context.Background()
	v, b := testRecords(1)

	require.NoError(t, store.Create(ctx, v, b))
	assert.ErrorIs(t, store.Create(ctx, v, b), storage.ErrDuplicateKey)

	// Binding conflict rolls back the vault insert
	v2, _ := testRecords(2)
	assert.ErrorIs(t, store.Create(ctx, v2, b), storage.ErrDuplicateKey)
	_, err := store.GetVault(ctx, v2.Address)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVaultStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVaultStore(pool)
	ctx := context.Background()

	_, err := store.GetVault(ctx, domain.Identity{9})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetBinding(ctx, domain.Identity{9})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.UpdateBalance(ctx, domain.Identity{9}, 0, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVaultStore_UpdateBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVaultStore(pool)
	ctx := context.Background()
	v, b := testRecords(1)
	require.NoError(t, store.Create(ctx, v, b))

	require.NoError(t, store.UpdateBalance(ctx, v.Address, 0, 1000))
	assert.ErrorIs(t, store.UpdateBalance(ctx, v.Address, 0, 5), storage.ErrConflict)
	assert.ErrorIs(t, store.UpdateBalance(ctx, v.Address, 1000, math.MaxUint64), storage.ErrInvalidInput)

	got, err := store.GetVault(ctx, v.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.NativeBalance)
}

func TestVaultStore_ListVaults(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVaultStore(pool)
	ctx := context.Background()
	for _, seed := range []byte{3, 1, 2} {
		v, b := testRecords(seed)
		require.NoError(t, store.Create(ctx, v, b))
	}

	vaults, err := store.ListVaults(ctx)
	require.NoError(t, err)
	require.Len(t, vaults, 3)
	for i := 1; i < len(vaults); i++ {
		assert.Less(t, vaults[i-1].Address.String(), vaults[i].Address.String())
	}
}
