package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/solana"
)

// StreamSource keeps the latest quote per feed from accountSubscribe
// notifications. Feeds without a cached quote are read from the fallback.
type StreamSource struct {
	ws       solana.WSClient
	fallback Source
	log      *logrus.Entry

	mu     sync.RWMutex
	latest map[string]domain.PriceQuote

	wg sync.WaitGroup
}

// NewStreamSource creates a streaming source. fallback may be nil.
func NewStreamSource(ws solana.WSClient, fallback Source, log *logrus.Entry) *StreamSource {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StreamSource{
		ws:       ws,
		fallback: fallback,
		log:      log.WithField("component", "oracle_stream"),
		latest:   make(map[string]domain.PriceQuote),
	}
}

// Watch subscribes to feedID and updates the cache until ctx is done or the
// subscription channel closes.
func (s *StreamSource) Watch(ctx context.Context, feedID string) error {
	ch, err := s.ws.SubscribeAccount(ctx, feedID)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", feedID, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-ch:
				if !ok {
					return
				}
				s.apply(feedID, notif)
			}
		}
	}()
	return nil
}

func (s *StreamSource) apply(feedID string, notif solana.AccountNotification) {
	q, err := decodeAccountData(feedID, notif.Data)
	if err != nil {
		// Keep the previous quote; GetQuote ages it out if updates stop.
		s.log.WithError(err).WithField("feed", feedID).Warn("ignoring undecodable price update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.latest[feedID]; ok && prev.PublishedAt > q.PublishedAt {
		return
	}
	s.latest[feedID] = q
}

// Fetch returns the cached quote, or the fallback's quote on a cache miss.
func (s *StreamSource) Fetch(ctx context.Context, feedID string) (domain.PriceQuote, error) {
	s.mu.RLock()
	q, ok := s.latest[feedID]
	s.mu.RUnlock()
	if ok {
		return q, nil
	}
	if s.fallback == nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: %s not streamed yet", ErrFeedNotFound, feedID)
	}
	return s.fallback.Fetch(ctx, feedID)
}

// Wait blocks until all watch goroutines exit.
func (s *StreamSource) Wait() {
	s.wg.Wait()
}

// Compile-time interface check.
var _ Source = (*StreamSource)(nil)
