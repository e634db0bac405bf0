package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// SettlementEventStore implements storage.SettlementEventStore using ClickHouse.
type SettlementEventStore struct {
	conn *Conn
}

// NewSettlementEventStore creates a new SettlementEventStore.
func NewSettlementEventStore(conn *Conn) *SettlementEventStore {
	return &SettlementEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SettlementEventStore = (*SettlementEventStore)(nil)

// InsertBulk adds multiple events. Fails entire batch on duplicate entry_id.
func (s *SettlementEventStore) InsertBulk(ctx context.Context, entries []*domain.LedgerEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { observe("insert_settlement_events", start, err) }()

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.EntryID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EntryID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EntryID] = struct{}{}
	}

	// Check for duplicates against existing rows (ReplacingMergeTree would
	// silently collapse them)
	for _, e := range entries {
		exists, err := s.exists(ctx, e.EntryID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO settlement_events (
			entry_id, vault_address, seq, kind, caller,
			amount_native, amount_token, rate, dust, balance_after, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.EntryID, e.VaultAddress, e.Seq, string(e.Kind), e.Caller,
			e.AmountNative, e.AmountToken, e.Rate, e.Dust, e.BalanceAfter, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves events for a vault within [start, end] (inclusive), ordered by seq ASC.
func (s *SettlementEventStore) GetByTimeRange(ctx context.Context, vaultAddress string, start, end int64) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, vault_address, seq, kind, caller,
		       amount_native, amount_token, rate, dust, balance_after, timestamp
		FROM settlement_events FINAL
		WHERE vault_address = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, vaultAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSettlementEvents(rows)
}

// DustTotals aggregates swap events per vault, ordered by vault address.
func (s *SettlementEventStore) DustTotals(ctx context.Context) ([]domain.DustTotal, error) {
	query := `
		SELECT vault_address, count(), sum(amount_token), sum(amount_native), sum(dust)
		FROM settlement_events FINAL
		WHERE kind = 'SWAP'
		GROUP BY vault_address
		ORDER BY vault_address ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dust totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.DustTotal
	for rows.Next() {
		var t domain.DustTotal
		var count uint64
		if err := rows.Scan(&t.VaultAddress, &count, &t.TokensIn, &t.NativeOut, &t.Dust); err != nil {
			return nil, fmt.Errorf("scan dust total row: %w", err)
		}
		t.SwapCount = int64(count)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dust total rows: %w", err)
	}

	return totals, nil
}

// exists checks if an event with the given entry_id exists.
func (s *SettlementEventStore) exists(ctx context.Context, entryID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM settlement_events WHERE entry_id = ?
	`, entryID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSettlementEvents scans multiple rows into ledger entries.
func scanSettlementEvents(rows chRows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	for rows.Next() {
		var e domain.LedgerEntry
		var kind string

		err := rows.Scan(
			&e.EntryID, &e.VaultAddress, &e.Seq, &kind, &e.Caller,
			&e.AmountNative, &e.AmountToken, &e.Rate, &e.Dust, &e.BalanceAfter, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan settlement event row: %w", err)
		}

		e.Kind = domain.LedgerKind(kind)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement event rows: %w", err)
	}

	return entries, nil
}
