package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-swap-vault/internal/domain"
)

// ComputeEntryID computes a deterministic ledger entry_id using SHA256.
// Formula: SHA256(vault_address|seq|kind|caller|amount_native|amount_token|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeEntryID(
	vaultAddress string,
	seq int64,
	kind domain.LedgerKind,
	caller string,
	amountNative uint64,
	amountToken uint64,
	timestampMs int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d|%d|%d",
		vaultAddress,
		seq,
		string(kind),
		caller,
		amountNative,
		amountToken,
		timestampMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// EntryIDFor computes the entry_id from a populated ledger entry.
func EntryIDFor(e *domain.LedgerEntry) string {
	return ComputeEntryID(e.VaultAddress, e.Seq, e.Kind, e.Caller, e.AmountNative, e.AmountToken, e.Timestamp)
}
