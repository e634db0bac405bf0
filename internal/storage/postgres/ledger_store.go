package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// Append adds a new entry. Returns ErrDuplicateKey if entry_id or (vault_address, seq) exists.
func (s *LedgerStore) Append(ctx context.Context, e *domain.LedgerEntry) (err error) {
	if e == nil || e.EntryID == "" || e.VaultAddress == "" || e.Seq <= 0 || !e.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	amounts := make([]int64, 5)
	for i, v := range []uint64{e.AmountNative, e.AmountToken, e.Rate, e.Dust, e.BalanceAfter} {
		if amounts[i], err = toBigint(v); err != nil {
			return err
		}
	}

	start := time.Now()
	defer func() { observe("append_ledger", start, err) }()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ledger_entries (
			entry_id, vault_address, seq, kind, caller,
			amount_native, amount_token, rate, dust, balance_after, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		e.EntryID, e.VaultAddress, e.Seq, string(e.Kind), e.Caller,
		amounts[0], amounts[1], amounts[2], amounts[3], amounts[4], e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByVault retrieves entries with seq > afterSeq ordered by seq ASC.
func (s *LedgerStore) GetByVault(ctx context.Context, vaultAddress string, afterSeq int64, limit int) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, vault_address, seq, kind, caller,
		       amount_native, amount_token, rate, dust, balance_after, timestamp
		FROM ledger_entries
		WHERE vault_address = $1 AND seq > $2
		ORDER BY seq ASC
	`
	args := []any{vaultAddress, afterSeq}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// LastSeq returns the highest seq for a vault, 0 if none.
func (s *LedgerStore) LastSeq(ctx context.Context, vaultAddress string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ledger_entries WHERE vault_address = $1
	`, vaultAddress).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// scanEntries scans multiple rows into a slice of LedgerEntry.
func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		var amounts [5]int64

		err := rows.Scan(
			&e.EntryID,
			&e.VaultAddress,
			&e.Seq,
			&kind,
			&e.Caller,
			&amounts[0],
			&amounts[1],
			&amounts[2],
			&amounts[3],
			&amounts[4],
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}

		e.Kind = domain.LedgerKind(kind)
		targets := []*uint64{&e.AmountNative, &e.AmountToken, &e.Rate, &e.Dust, &e.BalanceAfter}
		for i, dst := range targets {
			if *dst, err = fromBigint(amounts[i]); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}

	return entries, nil
}
