package domain

import "errors"

// Settlement errors. Every failing precondition surfaces one of these and leaves
// vault state untouched.
var (
	// ErrUnauthorized is returned when the caller is not the stored authority.
	ErrUnauthorized = errors.New("unauthorized: caller is not the vault authority")

	// ErrInvalidAmount is returned for zero or otherwise out-of-domain amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when the requested amount exceeds the native balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidPriceFeed is returned when the oracle reports a non-positive or unreadable price.
	ErrInvalidPriceFeed = errors.New("invalid price feed")

	// ErrStalePrice is returned when the quote is older than the freshness window.
	ErrStalePrice = errors.New("stale price")

	// ErrTransferFailed wraps a failure of the external asset-movement primitive.
	ErrTransferFailed = errors.New("transfer failed")
)
