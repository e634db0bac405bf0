package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Swap Dust Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Vaults: %d\n\n", r.VaultCount))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Swaps | %d |\n", r.Summary.SwapCount))
	sb.WriteString(fmt.Sprintf("| Tokens In | %d |\n", r.Summary.TokensIn))
	sb.WriteString(fmt.Sprintf("| Native Out | %d |\n", r.Summary.NativeOut))
	sb.WriteString(fmt.Sprintf("| Dust Retained | %d |\n", r.Summary.Dust))
	sb.WriteString(fmt.Sprintf("| Dust Ratio | %s |\n", formatPct(r.Summary.DustRatio)))
	sb.WriteString("\n")

	sb.WriteString("## Data Quality\n\n")
	if r.DataQuality.LedgersVerified > 0 {
		sb.WriteString(fmt.Sprintf("Ledgers replayed: %d\n\n", r.DataQuality.LedgersVerified))
	}
	if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No integrity errors.\n\n")
	} else {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Vaults\n\n")
	if len(r.Vaults) == 0 {
		sb.WriteString("No vaults.\n")
		return sb.String()
	}
	sb.WriteString("| Vault | Authority | Balance | Swaps | Tokens In | Native Out | Dust | Dust Ratio |\n")
	sb.WriteString("|-------|-----------|---------|-------|-----------|------------|------|------------|\n")
	for _, row := range r.Vaults {
		authority := row.Authority
		if authority == "" {
			authority = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %s |\n",
			row.Vault, authority, row.NativeBalance, row.SwapCount,
			row.TokensIn, row.NativeOut, row.Dust, formatPct(row.DustRatio)))
	}

	return sb.String()
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.4f%%", v*100)
}
