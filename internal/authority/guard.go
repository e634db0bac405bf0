// Package authority gates administrative operations on a stored authority identity.
package authority

import (
	"fmt"

	"solana-swap-vault/internal/domain"
)

// Check returns domain.ErrUnauthorized iff caller differs from expected.
func Check(caller, expected domain.Identity) error {
	if !caller.Equal(expected) {
		return fmt.Errorf("%w: caller %s, authority %s", domain.ErrUnauthorized, caller, expected)
	}
	return nil
}
