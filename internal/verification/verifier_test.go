package verification

import (
	"context"
	"testing"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/idhash"
	"solana-swap-vault/internal/storage/memory"
)

var (
	vaultAddr = domain.Identity{0xF1}
	admin     = domain.Identity{0xA}
	caller    = domain.Identity{0xB}
)

func entry(seq int64, kind domain.LedgerKind, native, token, rate, dust, after uint64) *domain.LedgerEntry {
	who := admin
	if kind == domain.LedgerKindSwap {
		who = caller
	}
	e := &domain.LedgerEntry{
		VaultAddress: vaultAddr.String(),
		Seq:          seq,
		Kind:         kind,
		Caller:       who.String(),
		AmountNative: native,
		AmountToken:  token,
		Rate:         rate,
		Dust:         dust,
		BalanceAfter: after,
		Timestamp:    1000 * seq,
	}
	e.EntryID = idhash.EntryIDFor(e)
	return e
}

// scenario is deposit 1000, withdraw 400, swap 600000 at rate 1000.
func scenario() []*domain.LedgerEntry {
	return []*domain.LedgerEntry{
		entry(1, domain.LedgerKindDeposit, 1000, 0, 0, 0, 1000),
		entry(2, domain.LedgerKindWithdraw, 400, 0, 0, 0, 600),
		entry(3, domain.LedgerKindSwap, 600, 600_000, 1000, 0, 0),
	}
}

func TestReplay_Match(t *testing.T) {
	res := Replay(scenario())

	if !res.Match {
		t.Fatalf("expected match, got divergences: %v", res.Divergences)
	}
	if res.ReplayedBalance != 0 {
		t.Errorf("ReplayedBalance = %d, want 0", res.ReplayedBalance)
	}
	if res.Entries != 3 {
		t.Errorf("Entries = %d, want 3", res.Entries)
	}
}

func TestReplay_Divergences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]*domain.LedgerEntry) []*domain.LedgerEntry
		field  string
	}{
		{
			name: "missing entry",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				return []*domain.LedgerEntry{es[0], es[2]}
			},
			field: "Seq",
		},
		{
			name: "tampered amount",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				es[1].AmountNative = 300
				return es
			},
			field: "EntryID",
		},
		{
			name: "wrong floor division",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				es[2] = entry(3, domain.LedgerKindSwap, 601, 600_000, 1000, 0, 0)
				return es
			},
			field: "AmountNative",
		},
		{
			name: "wrong dust",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				es[2] = entry(3, domain.LedgerKindSwap, 600, 600_000, 1000, 7, 0)
				return es
			},
			field: "Dust",
		},
		{
			name: "balance after mismatch",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				es[0] = entry(1, domain.LedgerKindDeposit, 1000, 0, 0, 0, 999)
				return es
			},
			field: "BalanceAfter",
		},
		{
			name: "overdraw",
			mutate: func(es []*domain.LedgerEntry) []*domain.LedgerEntry {
				es[1] = entry(2, domain.LedgerKindWithdraw, 5000, 0, 0, 0, 0)
				return es
			},
			field: "AmountNative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Replay(tt.mutate(scenario()))
			if res.Match {
				t.Fatal("expected divergence")
			}
			found := false
			for _, d := range res.Divergences {
				if d.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected divergence on %s, got %v", tt.field, res.Divergences)
			}
		})
	}
}

func TestVerifier_VerifyAll(t *testing.T) {
	ctx := context.Background()
	vaults := memory.NewVaultStore()
	ledger := memory.NewLedgerStore()

	v := &domain.Vault{Address: vaultAddr, Authority: admin, NativeBalance: 0}
	b := &domain.TokenVaultBinding{Address: domain.Identity{0xF2}, Authority: admin, TokenMint: domain.Identity{0x7}}
	if err := vaults.Create(ctx, v, b); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, e := range scenario() {
		if err := ledger.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	verifier := NewVerifier(vaults, ledger)
	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if report.TotalVaults != 1 || report.MatchedVaults != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	// Balance changed without a ledger entry.
	if err := vaults.UpdateBalance(ctx, vaultAddr, 0, 50); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}
	res, err := verifier.VerifyVault(ctx, vaultAddr)
	if err != nil {
		t.Fatalf("VerifyVault failed: %v", err)
	}
	if res.Match {
		t.Fatal("expected balance divergence")
	}
	last := res.Divergences[len(res.Divergences)-1]
	if last.Field != "NativeBalance" || last.Seq != 0 {
		t.Errorf("unexpected divergence: %s", last)
	}
	if res.StoredBalance != 50 || res.ReplayedBalance != 0 {
		t.Errorf("balances = %d/%d, want 50/0", res.StoredBalance, res.ReplayedBalance)
	}
}
