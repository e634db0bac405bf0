package domain

// Vault is the native-asset accounting record held under one authority.
// Corresponds to vaults table in PostgreSQL.
type Vault struct {
	Address       Identity // program-derived address, seeds ["vault", authority]
	Authority     Identity // identity allowed to deposit and withdraw
	NativeBalance uint64   // lamports held by the pool
}

// Clone returns a copy of the vault record.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// TokenVaultBinding records which fungible token the pool accepts.
// Corresponds to token_vault_bindings table in PostgreSQL.
type TokenVaultBinding struct {
	Address   Identity // program-derived address, seeds ["token_vault", vault address]
	Authority Identity // set at creation, never cross-checked against the vault
	TokenMint Identity // bound token type, immutable
}

// Clone returns a copy of the binding record.
func (b *TokenVaultBinding) Clone() *TokenVaultBinding {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
