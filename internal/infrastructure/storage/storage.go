// Package storage opens the configured ledger backend.
package storage

import (
	"context"
	"fmt"

	"lotledger/internal/config"
	"lotledger/internal/infrastructure/numerator"
	"lotledger/internal/infrastructure/storage/memory"
	"lotledger/internal/infrastructure/storage/postgres"
	"lotledger/internal/infrastructure/storage/postgres/catalog_repo"
	"lotledger/internal/infrastructure/storage/postgres/document_repo"
	"lotledger/internal/infrastructure/storage/postgres/register_repo"
	"lotledger/internal/infrastructure/storage/postgres/report_repo"
	"lotledger/internal/ledger"
	"lotledger/pkg/logger"
)

// Backend is an open storage backend.
type Backend struct {
	ledger.Backend

	// Check pings the store for the health endpoint.
	Check func(ctx context.Context) error
	// Close releases connections.
	Close func()
}

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		return &Backend{
			Backend: memory.New().Backend(),
			Check:   func(context.Context) error { return nil },
			Close:   func() {},
		}, nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	if cfg.MigrateOnStart {
		if err := Migrate(ctx, cfg.DSN, false); err != nil {
			return nil, err
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DSN)
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	b, err := PostgresBackend(pool, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{
		Backend: b,
		Check:   pool.Check,
		Close:   pool.Close,
	}, nil
}

// PostgresBackend wires the PostgreSQL repositories over pool.
func PostgresBackend(pool *postgres.Pool, cfg config.DatabaseConfig) (ledger.Backend, error) {
	txOpts := postgres.DefaultTxOptions()
	if cfg.StatementTimeout > 0 {
		txOpts.StatementTimeout = cfg.StatementTimeout
	}
	txm := postgres.NewTxManager(pool, txOpts)

	journal, err := postgres.NewJournal(txm)
	if err != nil {
		return ledger.Backend{}, err
	}

	return ledger.Backend{
		TxManager: txm,
		Products:  catalog_repo.NewProductRepo(txm),
		Lots:      register_repo.NewLotRepo(txm),
		Sales:     document_repo.NewSaleRepo(txm),
		Returns:   document_repo.NewReturnRepo(txm),
		Reports:   report_repo.NewReportRepo(txm),
		Numerator: numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) }),
		Journal:   journal,
	}, nil
}

// Migrate applies (or with down, rolls back) the schema migrations.
func Migrate(ctx context.Context, dsn string, down bool) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn(ctx, "close migrator", "error", err)
		}
	}()

	if down {
		return m.Down(ctx)
	}
	return m.Up(ctx)
}
