package reporting

import "time"

// Report summarises swap remainders kept by each vault.
type Report struct {
	GeneratedAt time.Time
	VaultCount  int

	Summary     Summary
	DataQuality DataQualitySection

	// Vaults sorted by vault address.
	Vaults []VaultDustRow
}

// Summary totals across all vaults.
type Summary struct {
	SwapCount int64
	TokensIn  uint64
	NativeOut uint64
	Dust      uint64
	DustRatio float64 // dust / tokens_in, 0 if no swaps
}

// DataQualitySection lists inconsistencies between the analytics copy and
// the vault records.
type DataQualitySection struct {
	LedgersVerified int // vaults whose ledger was replayed, 0 if not run
	IntegrityErrors []string
}

// VaultDustRow represents one row in the per-vault table.
type VaultDustRow struct {
	Vault         string
	Authority     string // empty if the vault record is missing
	NativeBalance uint64
	SwapCount     int64
	TokensIn      uint64
	NativeOut     uint64
	Dust          uint64
	DustRatio     float64
}
