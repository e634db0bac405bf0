// Package oracle fetches price quotes and validates them for settlement.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/observability"
)

// DefaultMaxAge is the reference freshness window.
const DefaultMaxAge = 30 * time.Second

// ErrFeedNotFound is returned by a Source that has no account or quote for a feed.
var ErrFeedNotFound = errors.New("price feed not found")

// Source returns the latest raw quote published for a feed. Sources do not validate freshness.
type Source interface {
	Fetch(ctx context.Context, feedID string) (domain.PriceQuote, error)
}

// Adapter validates quotes from a Source against a Clock.
type Adapter struct {
	source Source
	clock  Clock
	log    *logrus.Entry
}

// NewAdapter creates an adapter. A nil clock means SystemClock.
func NewAdapter(source Source, clock Clock, log *logrus.Entry) *Adapter {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		source: source,
		clock:  clock,
		log:    log.WithField("component", "oracle"),
	}
}

// GetQuote fetches a quote for feedID and rejects non-positive prices with
// ErrInvalidPriceFeed and quotes older than maxAge with ErrStalePrice.
// A quote published ahead of the clock is accepted.
func (a *Adapter) GetQuote(ctx context.Context, feedID string, maxAge time.Duration) (domain.PriceQuote, error) {
	q, err := a.source.Fetch(ctx, feedID)
	if err != nil {
		if ctx.Err() != nil {
			return domain.PriceQuote{}, ctx.Err()
		}
		if errors.Is(err, domain.ErrInvalidPriceFeed) {
			return domain.PriceQuote{}, err
		}
		return domain.PriceQuote{}, fmt.Errorf("%w: fetch %s: %w", domain.ErrInvalidPriceFeed, feedID, err)
	}

	if q.Price <= 0 {
		observability.RecordQuoteRejected("invalid")
		return domain.PriceQuote{}, fmt.Errorf("%w: feed %s price %d", domain.ErrInvalidPriceFeed, feedID, q.Price)
	}

	now, err := a.clock.Now(ctx)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("read clock: %w", err)
	}

	age := q.Age(now)
	observability.RecordQuoteAge(feedID, age.Seconds())
	if age > maxAge {
		observability.RecordQuoteRejected("stale")
		a.log.WithFields(logrus.Fields{
			"feed":    feedID,
			"age":     age.String(),
			"max_age": maxAge.String(),
		}).Warn("stale price quote")
		return domain.PriceQuote{}, fmt.Errorf("%w: feed %s age %s exceeds %s", domain.ErrStalePrice, feedID, age, maxAge)
	}

	return q, nil
}
