package vault

import "solana-swap-vault/internal/domain"

// InitializeBinding records the token mint a pool accepts. The binding keeps its own
// authority field; it is set to the same admin as the paired vault at creation only.
func InitializeBinding(admin, mint, address domain.Identity) *domain.TokenVaultBinding {
	return &domain.TokenVaultBinding{
		Address:   address,
		Authority: admin,
		TokenMint: mint,
	}
}
