package domain

import "time"

// PriceQuote is a single oracle reading. It is fetched per swap and never persisted.
type PriceQuote struct {
	FeedID      string // price account address
	Price       int64  // raw price mantissa
	Exponent    int32  // price = Price * 10^Exponent
	PublishedAt int64  // Unix timestamp (seconds)
}

// Age returns how old the quote is relative to now.
func (q PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(q.PublishedAt, 0))
}
