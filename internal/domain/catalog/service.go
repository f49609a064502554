package catalog

import (
	"context"
	"fmt"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/tx"
	"lotledger/internal/domain/audit"
	"lotledger/pkg/logger"
)

// SaleHistory answers whether any sale line references a product.
// The sale repository implements it.
type SaleHistory interface {
	ReferencesProduct(ctx context.Context, productID id.ID) (bool, error)
}

// Service holds product operations that reach beyond the product table.
type Service struct {
	repo    Repository
	history SaleHistory
	txm     tx.Manager
	journal audit.Journal
}

// NewService creates a product service.
func NewService(repo Repository, history SaleHistory, txm tx.Manager, journal audit.Journal) *Service {
	if journal == nil {
		journal = audit.Nop{}
	}
	return &Service{repo: repo, history: history, txm: txm, journal: journal}
}

// Delete removes a product together with all of its lots. A product that
// appears on any sale line, cancelled ones included, is kept so the sale
// history stays consistent; pause it instead.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := Lookup(ctx, s.repo, productID)
		if err != nil {
			return err
		}

		sold, err := s.history.ReferencesProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("check sale history: %w", err)
		}
		if sold {
			return apperror.NewProductHasSales(productID.String())
		}

		if err := s.repo.Delete(ctx, productID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return s.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntityProduct,
			EntityID:   productID,
			Action:     audit.ActionDelete,
			Payload:    map[string]any{"name": p.Name},
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product deleted", "product_id", productID)
	return nil
}
