// Package tx provides transaction management abstractions.
// Ledger services depend on this interface; the postgres and in-memory
// stores each provide an implementation.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// Every ledger mutation (sale create/edit/delete/cancel, return registration,
// deferred restock) runs inside exactly one RunInTransaction call so that a
// business error leaves lots, sales and trails untouched.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
