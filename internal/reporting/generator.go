package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/storage"
	"solana-swap-vault/internal/verification"
)

// Generator produces dust reports from stored settlement data.
type Generator struct {
	events   storage.SettlementEventStore
	vaults   storage.VaultStore
	verifier *verification.Verifier
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(events storage.SettlementEventStore, vaults storage.VaultStore) *Generator {
	return &Generator{
		events: events,
		vaults: vaults,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithVerifier adds ledger replay results to the data quality section.
func (g *Generator) WithVerifier(v *verification.Verifier) *Generator {
	g.verifier = v
	return g
}

// Generate builds the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	totals, err := g.events.DustTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dust totals: %w", err)
	}

	vaults, err := g.vaults.ListVaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	byAddr := make(map[string]*domain.Vault, len(vaults))
	for _, v := range vaults {
		byAddr[v.Address.String()] = v
	}

	rows := make([]VaultDustRow, 0, len(vaults))
	seen := make(map[string]struct{}, len(totals))
	var quality DataQualitySection
	var sum Summary

	for _, t := range totals {
		seen[t.VaultAddress] = struct{}{}
		row := VaultDustRow{
			Vault:     t.VaultAddress,
			SwapCount: t.SwapCount,
			TokensIn:  t.TokensIn,
			NativeOut: t.NativeOut,
			Dust:      t.Dust,
			DustRatio: ratio(t.Dust, t.TokensIn),
		}
		if v, ok := byAddr[t.VaultAddress]; ok {
			row.Authority = v.Authority.String()
			row.NativeBalance = v.NativeBalance
		} else {
			quality.IntegrityErrors = append(quality.IntegrityErrors,
				fmt.Sprintf("vault %s has settlement events but no vault record", t.VaultAddress))
		}
		if t.Dust >= t.TokensIn && t.TokensIn > 0 {
			quality.IntegrityErrors = append(quality.IntegrityErrors,
				fmt.Sprintf("vault %s: dust %d is not below tokens in %d", t.VaultAddress, t.Dust, t.TokensIn))
		}
		rows = append(rows, row)

		sum.SwapCount += t.SwapCount
		sum.TokensIn += t.TokensIn
		sum.NativeOut += t.NativeOut
		sum.Dust += t.Dust
	}

	// Vaults without swaps still appear with zero totals.
	for addr, v := range byAddr {
		if _, ok := seen[addr]; ok {
			continue
		}
		rows = append(rows, VaultDustRow{
			Vault:         addr,
			Authority:     v.Authority.String(),
			NativeBalance: v.NativeBalance,
		})
	}

	if g.verifier != nil {
		vr, err := g.verifier.VerifyAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("verify ledgers: %w", err)
		}
		quality.LedgersVerified = vr.TotalVaults
		for _, res := range vr.Results {
			for _, d := range res.Divergences {
				quality.IntegrityErrors = append(quality.IntegrityErrors,
					fmt.Sprintf("vault %s ledger: %s", res.Vault, d))
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Vault < rows[j].Vault })
	sort.Strings(quality.IntegrityErrors)
	sum.DustRatio = ratio(sum.Dust, sum.TokensIn)

	return &Report{
		GeneratedAt: g.now(),
		VaultCount:  len(rows),
		Summary:     sum,
		DataQuality: quality,
		Vaults:      rows,
	}, nil
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
