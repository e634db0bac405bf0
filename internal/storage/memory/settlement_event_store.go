package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// SettlementEventStore is an in-memory implementation of storage.SettlementEventStore.
type SettlementEventStore struct {
	mu     sync.RWMutex
	events map[string]*domain.LedgerEntry // keyed by entry_id
}

// NewSettlementEventStore creates a new in-memory settlement event store.
func NewSettlementEventStore() *SettlementEventStore {
	return &SettlementEventStore{
		events: make(map[string]*domain.LedgerEntry),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SettlementEventStore) InsertBulk(_ context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates first (within batch and existing)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.EntryID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.events[e.EntryID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[e.EntryID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[e.EntryID] = struct{}{}
	}

	for _, e := range entries {
		entryCopy := *e
		s.events[e.EntryID] = &entryCopy
	}
	return nil
}

// GetByTimeRange retrieves events for a vault within [start, end] ordered by seq ASC.
func (s *SettlementEventStore) GetByTimeRange(_ context.Context, vaultAddress string, start, end int64) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEntry
	for _, e := range s.events {
		if e.VaultAddress == vaultAddress && e.Timestamp >= start && e.Timestamp <= end {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// DustTotals aggregates swap events per vault, ordered by vault address.
func (s *SettlementEventStore) DustTotals(_ context.Context) ([]domain.DustTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.DustTotal)
	for _, e := range s.events {
		if e.Kind != domain.LedgerKindSwap {
			continue
		}
		t, ok := totals[e.VaultAddress]
		if !ok {
			t = &domain.DustTotal{VaultAddress: e.VaultAddress}
			totals[e.VaultAddress] = t
		}
		t.SwapCount++
		t.TokensIn += e.AmountToken
		t.NativeOut += e.AmountNative
		t.Dust += e.Dust
	}

	result := make([]domain.DustTotal, 0, len(totals))
	for _, t := range totals {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VaultAddress < result[j].VaultAddress
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SettlementEventStore = (*SettlementEventStore)(nil)
