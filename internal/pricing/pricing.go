// Package pricing resolves the token-per-native exchange rate used by swaps.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-swap-vault/internal/domain"
)

// Strategy resolves the number of token units exchanged for one native unit.
// A resolved rate is always > 0.
type Strategy interface {
	ResolveRate(ctx context.Context) (uint64, error)
	Describe() string
}

// FixedRate is a constant conversion rate.
type FixedRate struct {
	rate uint64
}

// NewFixedRate creates a fixed strategy. Zero is rejected.
func NewFixedRate(rate uint64) (*FixedRate, error) {
	if rate == 0 {
		return nil, fmt.Errorf("%w: fixed rate must be positive", domain.ErrInvalidAmount)
	}
	return &FixedRate{rate: rate}, nil
}

// ResolveRate returns the configured rate.
func (f *FixedRate) ResolveRate(context.Context) (uint64, error) {
	return f.rate, nil
}

// Describe returns a short label for logs and the status endpoint.
func (f *FixedRate) Describe() string {
	return fmt.Sprintf("fixed(%d)", f.rate)
}

// QuoteProvider is satisfied by oracle.Adapter.
type QuoteProvider interface {
	GetQuote(ctx context.Context, feedID string, maxAge time.Duration) (domain.PriceQuote, error)
}

// OracleFed derives the rate from a validated oracle quote as
// floor(price * 10^exponent).
type OracleFed struct {
	quotes QuoteProvider
	feedID string
	maxAge time.Duration
}

// NewOracleFed creates an oracle-backed strategy.
func NewOracleFed(quotes QuoteProvider, feedID string, maxAge time.Duration) *OracleFed {
	return &OracleFed{quotes: quotes, feedID: feedID, maxAge: maxAge}
}

// ResolveRate fetches a fresh quote and scales it to an integer rate.
// Quotes that scale below one are reported as ErrInvalidPriceFeed.
func (o *OracleFed) ResolveRate(ctx context.Context) (uint64, error) {
	q, err := o.quotes.GetQuote(ctx, o.feedID, o.maxAge)
	if err != nil {
		return 0, err
	}
	return RateFromQuote(q)
}

// Describe returns a short label for logs and the status endpoint.
func (o *OracleFed) Describe() string {
	return fmt.Sprintf("oracle(%s, max_age=%s)", o.feedID, o.maxAge)
}

// FeedID returns the configured feed.
func (o *OracleFed) FeedID() string { return o.feedID }

// MaxAge returns the configured freshness window.
func (o *OracleFed) MaxAge() time.Duration { return o.maxAge }

var maxRate = decimal.NewFromUint64(^uint64(0))

// A positive int64 price has at most 19 digits, so exponents outside
// [-maxExponent, maxExponent] always scale below one or overflow a uint64.
// Rejecting them up front keeps decimal from building a 10^exp big integer.
const maxExponent = 19

// RateFromQuote converts price * 10^exponent to an integer rate, truncating
// toward zero.
func RateFromQuote(q domain.PriceQuote) (uint64, error) {
	if q.Price <= 0 {
		return 0, fmt.Errorf("%w: price %d", domain.ErrInvalidPriceFeed, q.Price)
	}
	if q.Exponent > maxExponent {
		return 0, fmt.Errorf("%w: price %de%d overflows rate", domain.ErrInvalidPriceFeed, q.Price, q.Exponent)
	}
	if q.Exponent < -maxExponent {
		return 0, fmt.Errorf("%w: price %de%d scales below one", domain.ErrInvalidPriceFeed, q.Price, q.Exponent)
	}
	scaled := decimal.New(q.Price, q.Exponent).Truncate(0)
	if scaled.Sign() <= 0 {
		return 0, fmt.Errorf("%w: price %de%d scales below one", domain.ErrInvalidPriceFeed, q.Price, q.Exponent)
	}
	if scaled.GreaterThan(maxRate) {
		return 0, fmt.Errorf("%w: price %de%d overflows rate", domain.ErrInvalidPriceFeed, q.Price, q.Exponent)
	}
	return scaled.BigInt().Uint64(), nil
}

var (
	_ Strategy = (*FixedRate)(nil)
	_ Strategy = (*OracleFed)(nil)
)
