package storage

import (
	"context"

	"solana-swap-vault/internal/domain"
)

// VaultStore provides access to vaults and token_vault_bindings storage.
type VaultStore interface {
	// Create inserts a vault and its binding atomically.
	// Returns ErrDuplicateKey if either address exists.
	Create(ctx context.Context, v *domain.Vault, b *domain.TokenVaultBinding) error

	// GetVault retrieves a vault by address. Returns ErrNotFound if not exists.
	GetVault(ctx context.Context, address domain.Identity) (*domain.Vault, error)

	// GetBinding retrieves a binding by its address. Returns ErrNotFound if not exists.
	GetBinding(ctx context.Context, address domain.Identity) (*domain.TokenVaultBinding, error)

	// ListVaults retrieves all vaults ordered by address.
	ListVaults(ctx context.Context) ([]*domain.Vault, error)

	// UpdateBalance sets the vault balance to next if it currently equals expected.
	// Returns ErrNotFound if the vault does not exist, ErrConflict if the balance differs.
	UpdateBalance(ctx context.Context, address domain.Identity, expected, next uint64) error
}

// LedgerStore provides access to ledger_entries storage.
type LedgerStore interface {
	// Append adds a new entry. Returns ErrDuplicateKey if entry_id or (vault_address, seq) exists.
	Append(ctx context.Context, e *domain.LedgerEntry) error

	// GetByVault retrieves entries for a vault ordered by seq ASC.
	// afterSeq excludes entries with seq <= afterSeq; limit <= 0 means no limit.
	GetByVault(ctx context.Context, vaultAddress string, afterSeq int64, limit int) ([]*domain.LedgerEntry, error)

	// LastSeq returns the highest seq recorded for a vault, 0 if none.
	LastSeq(ctx context.Context, vaultAddress string) (int64, error)
}

// SettlementEventStore provides access to settlement_events analytics storage.
type SettlementEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate entry_id.
	InsertBulk(ctx context.Context, entries []*domain.LedgerEntry) error

	// GetByTimeRange retrieves events for a vault within [start, end] ms (inclusive), ordered by seq ASC.
	GetByTimeRange(ctx context.Context, vaultAddress string, start, end int64) ([]*domain.LedgerEntry, error)

	// DustTotals aggregates swap events per vault, ordered by vault address.
	DustTotals(ctx context.Context) ([]domain.DustTotal, error)
}
