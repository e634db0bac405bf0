// Package verification replays the settlement ledger of a vault and checks it
// against the stored vault record.
package verification

import (
	"context"
	"fmt"
	"math"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/idhash"
	"solana-swap-vault/internal/storage"
)

// pageSize bounds each ledger read.
const pageSize = 500

// FieldDivergence represents a mismatch between a recorded and a replayed value.
type FieldDivergence struct {
	Seq      int64       // ledger seq, 0 for vault-level checks
	Field    string      // field name
	Expected interface{} // recorded value
	Actual   interface{} // replayed value
}

func (d FieldDivergence) String() string {
	if d.Seq == 0 {
		return fmt.Sprintf("%s: recorded %v, replayed %v", d.Field, d.Expected, d.Actual)
	}
	return fmt.Sprintf("seq %d %s: recorded %v, replayed %v", d.Seq, d.Field, d.Expected, d.Actual)
}

// VerificationResult contains the result of replaying one vault.
type VerificationResult struct {
	Vault           string
	Entries         int
	Match           bool
	Divergences     []FieldDivergence
	StoredBalance   uint64 // balance in the vault record
	ReplayedBalance uint64 // balance after replaying the ledger
}

// VerificationReport contains results for every vault.
type VerificationReport struct {
	TotalVaults     int
	MatchedVaults   int
	DivergentVaults int
	Results         []VerificationResult
}

// Verifier replays ledgers from the stores.
type Verifier struct {
	vaults storage.VaultStore
	ledger storage.LedgerStore
}

// NewVerifier creates a verifier.
func NewVerifier(vaults storage.VaultStore, ledger storage.LedgerStore) *Verifier {
	return &Verifier{vaults: vaults, ledger: ledger}
}

// VerifyVault replays the ledger of one vault.
func (v *Verifier) VerifyVault(ctx context.Context, address domain.Identity) (*VerificationResult, error) {
	vault, err := v.vaults.GetVault(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load vault %s: %w", address, err)
	}

	var entries []*domain.LedgerEntry
	var after int64
	for {
		page, err := v.ledger.GetByVault(ctx, address.String(), after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("load ledger %s: %w", address, err)
		}
		entries = append(entries, page...)
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].Seq
	}

	res := Replay(entries)
	res.Vault = address.String()
	res.StoredBalance = vault.NativeBalance
	if res.ReplayedBalance != vault.NativeBalance {
		res.Divergences = append(res.Divergences, FieldDivergence{
			Field:    "NativeBalance",
			Expected: vault.NativeBalance,
			Actual:   res.ReplayedBalance,
		})
	}
	res.Match = len(res.Divergences) == 0
	return res, nil
}

// VerifyAll replays every stored vault.
func (v *Verifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	vaults, err := v.vaults.ListVaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}

	report := &VerificationReport{TotalVaults: len(vaults)}
	for _, vault := range vaults {
		res, err := v.VerifyVault(ctx, vault.Address)
		if err != nil {
			return nil, err
		}
		if res.Match {
			report.MatchedVaults++
		} else {
			report.DivergentVaults++
		}
		report.Results = append(report.Results, *res)
	}
	return report, nil
}

// Replay applies entries in order starting from a zero balance. Entries must
// be sorted by seq.
func Replay(entries []*domain.LedgerEntry) *VerificationResult {
	res := &VerificationResult{Entries: len(entries)}
	var balance uint64

	for i, e := range entries {
		div := func(field string, expected, actual interface{}) {
			res.Divergences = append(res.Divergences, FieldDivergence{Seq: e.Seq, Field: field, Expected: expected, Actual: actual})
		}

		if want := int64(i + 1); e.Seq != want {
			div("Seq", e.Seq, want)
		}
		if id := idhash.EntryIDFor(e); e.EntryID != id {
			div("EntryID", e.EntryID, id)
		}

		switch e.Kind {
		case domain.LedgerKindDeposit:
			if balance > math.MaxUint64-e.AmountNative {
				div("AmountNative", e.AmountNative, "overflow")
				continue
			}
			balance += e.AmountNative

		case domain.LedgerKindWithdraw:
			if e.AmountNative > balance {
				div("AmountNative", e.AmountNative, balance)
				continue
			}
			balance -= e.AmountNative

		case domain.LedgerKindSwap:
			if e.Rate == 0 {
				div("Rate", e.Rate, "positive")
				continue
			}
			if native := e.AmountToken / e.Rate; e.AmountNative != native {
				div("AmountNative", e.AmountNative, native)
			}
			if dust := e.AmountToken % e.Rate; e.Dust != dust {
				div("Dust", e.Dust, dust)
			}
			if e.AmountNative > balance {
				div("AmountNative", e.AmountNative, balance)
				continue
			}
			balance -= e.AmountNative

		default:
			div("Kind", e.Kind, "known kind")
			continue
		}

		if e.BalanceAfter != balance {
			div("BalanceAfter", e.BalanceAfter, balance)
			// Continue from the recorded balance so one gap is reported once.
			balance = e.BalanceAfter
		}
	}

	res.ReplayedBalance = balance
	res.Match = len(res.Divergences) == 0
	return res
}
