package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-vault dust rows as CSV string.
func RenderCSV(rows []VaultDustRow) string {
	var sb strings.Builder

	sb.WriteString("vault,authority,native_balance,swap_count,tokens_in,native_out,dust,dust_ratio\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%.6f\n",
			r.Vault,
			r.Authority,
			r.NativeBalance,
			r.SwapCount,
			r.TokensIn,
			r.NativeOut,
			r.Dust,
			r.DustRatio,
		))
	}

	return sb.String()
}
