// Package memory is an in-process implementation of the ledger repositories.
// A single mutex serializes transactions; a failed transaction restores the
// snapshot taken when it began.
package memory

import (
	"context"
	"maps"
	"sync"

	"lotledger/internal/core/id"
	"lotledger/internal/core/tx"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/ledger"
)

type state struct {
	products  map[id.ID]catalog.Product
	lots      map[id.ID]lots.Lot
	sales     map[id.ID]*sales.Sale
	returns   map[id.ID]*returns.Return
	sequences map[string]int64
	journal   []audit.Entry
}

func newState() state {
	return state{
		products:  make(map[id.ID]catalog.Product),
		lots:      make(map[id.ID]lots.Lot),
		sales:     make(map[id.ID]*sales.Sale),
		returns:   make(map[id.ID]*returns.Return),
		sequences: make(map[string]int64),
	}
}

func (s state) clone() state {
	c := state{
		products:  maps.Clone(s.products),
		lots:      maps.Clone(s.lots),
		sales:     make(map[id.ID]*sales.Sale, len(s.sales)),
		returns:   make(map[id.ID]*returns.Return, len(s.returns)),
		sequences: maps.Clone(s.sequences),
		journal:   append([]audit.Entry(nil), s.journal...),
	}
	for k, v := range s.sales {
		c.sales[k] = copySale(v)
	}
	for k, v := range s.returns {
		c.returns[k] = copyReturn(v)
	}
	return c
}

// Store holds all ledger state.
type Store struct {
	mu sync.Mutex
	st state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

// TxManager runs transactions against a Store.
type TxManager struct {
	store *Store
}

var _ tx.Manager = (*TxManager)(nil)

// TxManager returns the transaction manager of the store.
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction implements tx.Manager. Nested calls reuse the outer
// transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx, m.store) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snapshot := m.store.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, m.store)); err != nil {
		m.store.st = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context, s *Store) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store mutex unless ctx already runs inside a transaction
// of this store. The returned func releases it.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx, s) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Backend returns the store's repositories for ledger.New.
func (s *Store) Backend() ledger.Backend {
	return ledger.Backend{
		TxManager: s.TxManager(),
		Products:  s.Products(),
		Lots:      s.Lots(),
		Sales:     s.Sales(),
		Returns:   s.Returns(),
		Reports:   s.Reports(),
		Numerator: s.Numerator(),
		Journal:   s.Journal(),
	}
}
