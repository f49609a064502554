// Package ledger wires the domain services over a storage backend.
package ledger

import (
	"time"

	"lotledger/internal/core/numerator"
	"lotledger/internal/core/tx"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/fifo"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/reports"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
)

// ReturnRepository is both the return store and the lookup sales use to
// detect locked sales.
type ReturnRepository interface {
	returns.Repository
	sales.ReturnLookup
}

// Backend is the set of repositories a storage driver provides.
type Backend struct {
	TxManager tx.Manager
	Products  catalog.Repository
	Lots      lots.Repository
	Sales     sales.Repository
	Returns   ReturnRepository
	Reports   reports.Repository
	Numerator numerator.Generator
	Journal   audit.Journal
}

// Ledger exposes the domain services.
type Ledger struct {
	Products catalog.Repository
	Catalog  *catalog.Service
	Lots     *lots.Store
	Engine   *fifo.Engine
	Sales    *sales.Manager
	Returns  *returns.Processor
	Reports  *reports.Service
}

// New builds the services. clock may be nil.
func New(b Backend, clock func() time.Time) *Ledger {
	store := lots.NewStore(b.Lots, b.Products, b.TxManager, b.Journal)
	engine := fifo.NewEngine(store)
	l := &Ledger{
		Products: b.Products,
		Catalog:  catalog.NewService(b.Products, b.Sales, b.TxManager, b.Journal),
		Lots:     store,
		Engine:   engine,
		Sales: sales.NewManager(sales.Deps{
			TxManager: b.TxManager,
			Sales:     b.Sales,
			Returns:   b.Returns,
			Products:  b.Products,
			Engine:    engine,
			Numerator: b.Numerator,
			Journal:   b.Journal,
			Clock:     clock,
		}),
		Returns: returns.NewProcessor(returns.Deps{
			TxManager: b.TxManager,
			Returns:   b.Returns,
			Sales:     b.Sales,
			Engine:    engine,
			Numerator: b.Numerator,
			Journal:   b.Journal,
			Clock:     clock,
		}),
	}
	l.Reports = reports.NewService(reports.Deps{
		Repo:     b.Reports,
		Sales:    l.Sales,
		Returns:  l.Returns,
		Products: b.Products,
		Lots:     store,
		Clock:    clock,
	})
	return l
}
