package oracle

import (
	"context"
	"fmt"
	"sync"

	"solana-swap-vault/internal/domain"
)

// ManualSource serves quotes set in memory.
type ManualSource struct {
	mu     sync.RWMutex
	quotes map[string]domain.PriceQuote
}

// NewManualSource creates an empty manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{quotes: make(map[string]domain.PriceQuote)}
}

// Set stores the quote for feedID.
func (s *ManualSource) Set(feedID string, q domain.PriceQuote) {
	q.FeedID = feedID
	s.mu.Lock()
	s.quotes[feedID] = q
	s.mu.Unlock()
}

// Fetch returns the stored quote.
func (s *ManualSource) Fetch(_ context.Context, feedID string) (domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[feedID]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%w: %s", ErrFeedNotFound, feedID)
	}
	return q, nil
}

// Compile-time interface check.
var _ Source = (*ManualSource)(nil)
