package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
)

// VaultStore is an in-memory implementation of storage.VaultStore.
type VaultStore struct {
	mu       sync.RWMutex
	vaults   map[domain.Identity]*domain.Vault             // keyed by vault address
	bindings map[domain.Identity]*domain.TokenVaultBinding // keyed by binding address
}

// NewVaultStore creates a new in-memory vault store.
func NewVaultStore() *VaultStore {
	return &VaultStore{
		vaults:   make(map[domain.Identity]*domain.Vault),
		bindings: make(map[domain.Identity]*domain.TokenVaultBinding),
	}
}

// Create inserts a vault and its binding atomically.
func (s *VaultStore) Create(_ context.Context, v *domain.Vault, b *domain.TokenVaultBinding) error {
	if v == nil || b == nil || v.Address.IsZero() || b.Address.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[v.Address]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bindings[b.Address]; exists {
		return storage.ErrDuplicateKey
	}

	// Store copies to prevent external mutation
	s.vaults[v.Address] = v.Clone()
	s.bindings[b.Address] = b.Clone()
	return nil
}

// GetVault retrieves a vault by address. Returns ErrNotFound if not exists.
func (s *VaultStore) GetVault(_ context.Context, address domain.Identity) (*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.vaults[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return v.Clone(), nil
}

// GetBinding retrieves a binding by address. Returns ErrNotFound if not exists.
func (s *VaultStore) GetBinding(_ context.Context, address domain.Identity) (*domain.TokenVaultBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.bindings[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return b.Clone(), nil
}

// ListVaults retrieves all vaults ordered by address.
func (s *VaultStore) ListVaults(_ context.Context) ([]*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Vault, 0, len(s.vaults))
	for _, v := range s.vaults {
		result = append(result, v.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address.String() < result[j].Address.String()
	})
	return result, nil
}

// UpdateBalance sets the balance to next if it currently equals expected.
func (s *VaultStore) UpdateBalance(_ context.Context, address domain.Identity, expected, next uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.vaults[address]
	if !exists {
		return storage.ErrNotFound
	}
	if v.NativeBalance != expected {
		return storage.ErrConflict
	}
	v.NativeBalance = next
	return nil
}

// Verify interface compliance at compile time.
var _ storage.VaultStore = (*VaultStore)(nil)
