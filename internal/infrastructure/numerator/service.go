// Package numerator provides the PostgreSQL implementation of document
// auto-numbering on the sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "lotledger/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx: the caller's transaction when
// there is one.
type QuerierFunc func(ctx context.Context) Querier

// Service hands out gap-free numbers. The UPSERT row lock serializes
// concurrent callers and is released with the caller's transaction, so a
// rolled-back document gives its number back.
type Service struct {
	querier QuerierFunc
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(querier QuerierFunc) *Service {
	return &Service{querier: querier}
}

const nextSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

// Next implements numerator.Generator.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := corenumerator.Key(cfg, period)
	var num int64
	if err := s.querier(ctx).QueryRow(ctx, nextSQL, key).Scan(&num); err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}
	return corenumerator.Format(cfg, period, num), nil
}
