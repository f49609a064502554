package context

import (
	"context"
)

// DefaultOperator is recorded in the audit journal when the caller did not
// identify itself.
const DefaultOperator = "system"

type operatorKey struct{}

// WithOperator records who is performing the ledger operation.
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

// GetOperator returns the operator from context or DefaultOperator.
func GetOperator(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultOperator
}
