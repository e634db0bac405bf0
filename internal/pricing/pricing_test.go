package pricing

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-vault/internal/domain"
)

func TestFixedRate(t *testing.T) {
	s, err := NewFixedRate(1000)
	require.NoError(t, err)

	rate, err := s.ResolveRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rate)
	assert.Equal(t, "fixed(1000)", s.Describe())

	_, err = NewFixedRate(0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRateFromQuote(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		exponent int32
		want     uint64
		wantErr  bool
	}{
		{"integer", 1000, 0, 1000, false},
		{"negative exponent truncates", 15_025_000_000, -8, 150, false},
		{"positive exponent", 25, 2, 2500, false},
		{"below one", 5, -1, 0, true},
		{"zero", 0, 0, 0, true},
		{"negative", -100, 0, 0, true},
		{"overflow", 1_000_000, 20, 0, true},
		{"largest exponent", 1, 19, 10_000_000_000_000_000_000, false},
		{"max price smallest exponent", math.MaxInt64, -18, 9, false},
		{"max price below one", math.MaxInt64, -19, 0, true},
		{"huge exponent", 1, math.MaxInt32, 0, true},
		{"huge negative exponent", math.MaxInt64, math.MinInt32, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			got, err := RateFromQuote(domain.PriceQuote{Price: tt.price, Exponent: tt.exponent})
			assert.Less(t, time.Since(start), 100*time.Millisecond)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPriceFeed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubQuotes struct {
	quote  domain.PriceQuote
	err    error
	feedID string
	maxAge time.Duration
}

func (s *stubQuotes) GetQuote(_ context.Context, feedID string, maxAge time.Duration) (domain.PriceQuote, error) {
	s.feedID = feedID
	s.maxAge = maxAge
	return s.quote, s.err
}

func TestOracleFed(t *testing.T) {
	quotes := &stubQuotes{quote: domain.PriceQuote{Price: 100_000, Exponent: -2}}
	s := NewOracleFed(quotes, "SOL/USD", 30*time.Second)

	rate, err := s.ResolveRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rate)
	assert.Equal(t, "SOL/USD", quotes.feedID)
	assert.Equal(t, 30*time.Second, quotes.maxAge)
}

func TestOracleFed_PropagatesQuoteErrors(t *testing.T) {
	for _, sentinel := range []error{domain.ErrStalePrice, domain.ErrInvalidPriceFeed} {
		s := NewOracleFed(&stubQuotes{err: sentinel}, "SOL/USD", time.Second)

		_, err := s.ResolveRate(context.Background())
		assert.ErrorIs(t, err, sentinel)
	}
}
