package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/config"
	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/pricing"
	"solana-swap-vault/internal/settlement"
	"solana-swap-vault/internal/swap"
	"solana-swap-vault/internal/transfer"
)

// NewCustody creates the in-memory custody ledger with the configured seed balances.
func NewCustody(cfg config.CustodyConfig) (*transfer.Custody, error) {
	c := transfer.NewCustody()
	for _, s := range cfg.Native {
		owner, err := domain.ParseIdentity(s.Owner)
		if err != nil {
			return nil, fmt.Errorf("custody native owner: %w", err)
		}
		if err := c.CreditNative(owner, s.Amount); err != nil {
			return nil, err
		}
	}
	for _, s := range cfg.Tokens {
		mint, err := domain.ParseIdentity(s.Mint)
		if err != nil {
			return nil, fmt.Errorf("custody token mint: %w", err)
		}
		owner, err := domain.ParseIdentity(s.Owner)
		if err != nil {
			return nil, fmt.Errorf("custody token owner: %w", err)
		}
		if err := c.CreditToken(mint, owner, s.Amount); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewService assembles the settlement service.
func NewService(cfg *config.Config, stores *Stores, custody *transfer.Custody, strategy pricing.Strategy, log *logrus.Entry) (*settlement.Service, error) {
	programID, err := domain.ParseIdentity(cfg.Service.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	return settlement.NewService(settlement.Deps{
		ProgramID: programID,
		Vaults:    stores.Vaults,
		Ledger:    stores.Ledger,
		Events:    stores.Events,
		Native:    custody,
		Engine:    swap.NewEngine(strategy, custody, custody, log),
		Logger:    log,
	}), nil
}
