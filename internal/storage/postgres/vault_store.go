package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// VaultStore implements storage.VaultStore using PostgreSQL.
// Vaults and bindings live in separate tables, written in one transaction.
type VaultStore struct {
	pool *Pool
}

// NewVaultStore creates a new VaultStore.
func NewVaultStore(pool *Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VaultStore = (*VaultStore)(nil)

// Create inserts a vault and its binding atomically. Returns ErrDuplicateKey if either exists.
func (s *VaultStore) Create(ctx context.Context, v *domain.Vault, b *domain.TokenVaultBinding) (err error) {
	if v == nil || b == nil || v.Address.IsZero() || b.Address.IsZero() {
		return storage.ErrInvalidInput
	}
	balance, err := toBigint(v.NativeBalance)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { observe("create_vault", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO vaults (address, authority, native_balance)
		VALUES ($1, $2, $3)
	`, v.Address.String(), v.Authority.String(), balance)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vault: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO token_vault_bindings (address, authority, token_mint)
		VALUES ($1, $2, $3)
	`, b.Address.String(), b.Authority.String(), b.TokenMint.String())
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert binding: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetVault retrieves a vault by address. Returns ErrNotFound if not exists.
func (s *VaultStore) GetVault(ctx context.Context, address domain.Identity) (*domain.Vault, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, authority, native_balance
		FROM vaults
		WHERE address = $1
	`, address.String())

	v, err := scanVault(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vault: %w", err)
	}
	return v, nil
}

// GetBinding retrieves a binding by address. Returns ErrNotFound if not exists.
func (s *VaultStore) GetBinding(ctx context.Context, address domain.Identity) (*domain.TokenVaultBinding, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, authority, token_mint
		FROM token_vault_bindings
		WHERE address = $1
	`, address.String())

	var addr, auth, mint string
	if err := row.Scan(&addr, &auth, &mint); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get binding: %w", err)
	}

	var b domain.TokenVaultBinding
	var err error
	if b.Address, err = domain.ParseIdentity(addr); err != nil {
		return nil, fmt.Errorf("parse binding address: %w", err)
	}
	if b.Authority, err = domain.ParseIdentity(auth); err != nil {
		return nil, fmt.Errorf("parse binding authority: %w", err)
	}
	if b.TokenMint, err = domain.ParseIdentity(mint); err != nil {
		return nil, fmt.Errorf("parse binding mint: %w", err)
	}
	return &b, nil
}

// ListVaults retrieves all vaults ordered by address.
func (s *VaultStore) ListVaults(ctx context.Context) ([]*domain.Vault, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, authority, native_balance
		FROM vaults
		ORDER BY address ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []*domain.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vault row: %w", err)
		}
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault rows: %w", err)
	}
	return vaults, nil
}

// UpdateBalance sets the balance to next if it currently equals expected.
func (s *VaultStore) UpdateBalance(ctx context.Context, address domain.Identity, expected, next uint64) (err error) {
	exp, err := toBigint(expected)
	if err != nil {
		return err
	}
	nxt, err := toBigint(next)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { observe("update_balance", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		UPDATE vaults
		SET native_balance = $3, updated_at = NOW()
		WHERE address = $1 AND native_balance = $2
	`, address.String(), exp, nxt)
	if err != nil {
		return fmt.Errorf("update vault balance: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vaults WHERE address = $1)`, address.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check vault exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// scanVault scans a single row into a Vault.
func scanVault(row pgx.Row) (*domain.Vault, error) {
	var addr, auth string
	var balance int64
	if err := row.Scan(&addr, &auth, &balance); err != nil {
		return nil, err
	}

	var v domain.Vault
	var err error
	if v.Address, err = domain.ParseIdentity(addr); err != nil {
		return nil, fmt.Errorf("parse vault address: %w", err)
	}
	if v.Authority, err = domain.ParseIdentity(auth); err != nil {
		return nil, fmt.Errorf("parse vault authority: %w", err)
	}
	if v.NativeBalance, err = fromBigint(balance); err != nil {
		return nil, err
	}
	return &v, nil
}
