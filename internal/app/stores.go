// Package app wires configuration into stores, pricing and the settlement
// service for the commands under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/config"
	"solana-swap-vault/internal/storage"
	chstore "solana-swap-vault/internal/storage/clickhouse"
	"solana-swap-vault/internal/storage/memory"
	"solana-swap-vault/internal/storage/migrations"
	pgstore "solana-swap-vault/internal/storage/postgres"
)

// Stores holds all storage implementations.
type Stores struct {
	Vaults storage.VaultStore
	Ledger storage.LedgerStore
	Events storage.SettlementEventStore // nil when analytics is disabled
}

// MemoryStores returns fresh in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Vaults: memory.NewVaultStore(),
		Ledger: memory.NewLedgerStore(),
		Events: memory.NewSettlementEventStore(),
	}
}

// OpenStores connects the configured backends and applies migrations.
// The returned cleanup closes every connection.
func OpenStores(ctx context.Context, cfg config.StorageConfig, log *logrus.Entry) (*Stores, func(), error) {
	if cfg.UseMemory {
		log.Info("using in-memory storage")
		return MemoryStores(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &Stores{
		Vaults: pgstore.NewVaultStore(pool),
		Ledger: pgstore.NewLedgerStore(pool),
	}

	if cfg.ClickHouseDSN == "" {
		log.Warn("clickhouse_dsn not set, settlement analytics disabled")
		return stores, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.Events = chstore.NewSettlementEventStore(chConn)

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			log.WithError(err).Warn("close clickhouse")
		}
		pool.Close()
	}
	return stores, cleanup, nil
}
