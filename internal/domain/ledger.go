package domain

// LedgerKind identifies the settlement operation that produced a ledger entry.
type LedgerKind string

const (
	LedgerKindDeposit  LedgerKind = "DEPOSIT"
	LedgerKindWithdraw LedgerKind = "WITHDRAW"
	LedgerKindSwap     LedgerKind = "SWAP"
)

// String returns the string representation of LedgerKind.
func (k LedgerKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k LedgerKind) IsValid() bool {
	return k == LedgerKindDeposit || k == LedgerKindWithdraw || k == LedgerKindSwap
}

// LedgerEntry is an append-only record of one committed settlement.
// Corresponds to ledger_entries table in PostgreSQL and settlement_events in ClickHouse.
type LedgerEntry struct {
	EntryID      string     // deterministic hash, see idhash.ComputeEntryID
	VaultAddress string     // base58 vault address
	Seq          int64      // per-vault sequence, starting at 1
	Kind         LedgerKind // operation
	Caller       string     // base58 caller identity
	AmountNative uint64     // lamports moved in or out of the pool
	AmountToken  uint64     // tokens taken in (swaps only)
	Rate         uint64     // tokens per lamport (swaps only)
	Dust         uint64     // amount_token % rate, discarded by floor division (swaps only)
	BalanceAfter uint64     // vault balance after the settlement
	Timestamp    int64      // Unix timestamp in milliseconds
}

// DustTotal aggregates truncated swap remainders for one vault.
type DustTotal struct {
	VaultAddress string
	SwapCount    int64
	TokensIn     uint64
	NativeOut    uint64
	Dust         uint64
}
