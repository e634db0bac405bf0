package oracle

import (
	"encoding/binary"
	"fmt"

	"solana-swap-vault/internal/domain"
)

// Pyth legacy price account layout (little endian).
const (
	pythMagic          = 0xa1b2c3d4
	pythOffsetMagic    = 0
	pythOffsetExponent = 20
	pythOffsetTime     = 96
	pythOffsetPrice    = 208
	pythOffsetConf     = 216
	pythOffsetStatus   = 224
	pythMinSize        = 240

	pythStatusTrading = 1
)

// PriceAccount is the subset of a Pyth price account the vault consumes.
type PriceAccount struct {
	Price       int64
	Conf        uint64
	Exponent    int32
	Status      uint32
	PublishedAt int64
}

// ParsePriceAccount decodes a Pyth price account. Malformed data and
// non-trading status are reported as ErrInvalidPriceFeed.
func ParsePriceAccount(data []byte) (PriceAccount, error) {
	if len(data) < pythMinSize {
		return PriceAccount{}, fmt.Errorf("%w: account data %d bytes, need %d", domain.ErrInvalidPriceFeed, len(data), pythMinSize)
	}
	if magic := binary.LittleEndian.Uint32(data[pythOffsetMagic:]); magic != pythMagic {
		return PriceAccount{}, fmt.Errorf("%w: bad magic %#x", domain.ErrInvalidPriceFeed, magic)
	}

	acc := PriceAccount{
		Exponent:    int32(binary.LittleEndian.Uint32(data[pythOffsetExponent:])),
		PublishedAt: int64(binary.LittleEndian.Uint64(data[pythOffsetTime:])),
		Price:       int64(binary.LittleEndian.Uint64(data[pythOffsetPrice:])),
		Conf:        binary.LittleEndian.Uint64(data[pythOffsetConf:]),
		Status:      binary.LittleEndian.Uint32(data[pythOffsetStatus:]),
	}
	if acc.Status != pythStatusTrading {
		return PriceAccount{}, fmt.Errorf("%w: status %d is not trading", domain.ErrInvalidPriceFeed, acc.Status)
	}
	return acc, nil
}

// Quote converts the account into a PriceQuote for feedID.
func (a PriceAccount) Quote(feedID string) domain.PriceQuote {
	return domain.PriceQuote{
		FeedID:      feedID,
		Price:       a.Price,
		Exponent:    a.Exponent,
		PublishedAt: a.PublishedAt,
	}
}

// EncodePriceAccount builds account data in the layout ParsePriceAccount reads.
// Used by the dev tooling and tests.
func EncodePriceAccount(a PriceAccount) []byte {
	data := make([]byte, pythMinSize)
	binary.LittleEndian.PutUint32(data[pythOffsetMagic:], pythMagic)
	binary.LittleEndian.PutUint32(data[pythOffsetExponent:], uint32(a.Exponent))
	binary.LittleEndian.PutUint64(data[pythOffsetTime:], uint64(a.PublishedAt))
	binary.LittleEndian.PutUint64(data[pythOffsetPrice:], uint64(a.Price))
	binary.LittleEndian.PutUint64(data[pythOffsetConf:], a.Conf)
	binary.LittleEndian.PutUint32(data[pythOffsetStatus:], a.Status)
	return data
}
