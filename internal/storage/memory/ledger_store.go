package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu      sync.RWMutex
	ids     map[string]struct{}              // entry_id set
	byVault map[string][]*domain.LedgerEntry // ordered by seq
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		ids:     make(map[string]struct{}),
		byVault: make(map[string][]*domain.LedgerEntry),
	}
}

// Append adds a new entry. Returns ErrDuplicateKey if entry_id or (vault, seq) exists.
func (s *LedgerStore) Append(_ context.Context, e *domain.LedgerEntry) error {
	if e == nil || e.EntryID == "" || e.VaultAddress == "" || e.Seq <= 0 || !e.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[e.EntryID]; exists {
		return storage.ErrDuplicateKey
	}
	entries := s.byVault[e.VaultAddress]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].Seq >= e.Seq })
	if idx < len(entries) && entries[idx].Seq == e.Seq {
		return storage.ErrDuplicateKey
	}

	entryCopy := *e
	entries = append(entries, nil)
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = &entryCopy
	s.byVault[e.VaultAddress] = entries
	s.ids[e.EntryID] = struct{}{}
	return nil
}

// GetByVault retrieves entries with seq > afterSeq ordered by seq ASC.
func (s *LedgerStore) GetByVault(_ context.Context, vaultAddress string, afterSeq int64, limit int) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEntry
	for _, e := range s.byVault[vaultAddress] {
		if e.Seq <= afterSeq {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		entryCopy := *e
		result = append(result, &entryCopy)
	}
	return result, nil
}

// LastSeq returns the highest seq for a vault, 0 if none.
func (s *LedgerStore) LastSeq(_ context.Context, vaultAddress string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byVault[vaultAddress]
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[len(entries)-1].Seq, nil
}

// Verify interface compliance at compile time.
var _ storage.LedgerStore = (*LedgerStore)(nil)
