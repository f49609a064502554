package lots

import (
	"context"
	"fmt"
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/tx"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/settings"
	"lotledger/pkg/logger"
)

// Store provides lot operations used by the FIFO engine and stock receipt.
// Calls that mutate lots expect to run inside a transaction owned by the caller,
// except Receive which opens its own.
type Store struct {
	repo     Repository
	products catalog.Repository
	txm      tx.Manager
	journal  audit.Journal
	now      func() time.Time
}

// NewStore creates a lot store.
func NewStore(repo Repository, products catalog.Repository, txm tx.Manager, journal audit.Journal) *Store {
	if journal == nil {
		journal = audit.Nop{}
	}
	return &Store{
		repo:     repo,
		products: products,
		txm:      txm,
		journal:  journal,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailable returns the product's lots holding stock, oldest first, locked
// for the rest of the transaction.
func (s *Store) ListAvailable(ctx context.Context, productID id.ID) ([]*Lot, error) {
	lots, err := s.repo.ListAvailableForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list available lots: %w", err)
	}
	return lots, nil
}

// Decrement removes amount units from lot and updates lot in place.
func (s *Store) Decrement(ctx context.Context, lot *Lot, amount int64) error {
	if amount <= 0 {
		return apperror.NewValidation("decrement amount must be positive").WithDetail("amount", amount)
	}
	if amount > lot.CurrentQuantity {
		logger.Error(ctx, "lot decrement exceeds current quantity",
			"lot_id", lot.ID,
			"requested", amount,
			"available", lot.CurrentQuantity,
		)
		return apperror.NewInsufficientLotQuantity(lot.ID.String(), amount, lot.CurrentQuantity)
	}

	left, err := s.repo.Decrement(ctx, lot.ID, amount)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeInsufficientLotQuantity) {
			logger.Error(ctx, "lot guard rejected decrement", "lot_id", lot.ID, "requested", amount)
			return err
		}
		return fmt.Errorf("decrement lot %s: %w", lot.ID, err)
	}
	lot.CurrentQuantity = left
	return nil
}

// Increment adds amount units back to a lot. There is no upper bound.
func (s *Store) Increment(ctx context.Context, lotID id.ID, amount int64) error {
	if amount <= 0 {
		return apperror.NewValidation("increment amount must be positive").WithDetail("amount", amount)
	}
	if _, err := s.repo.Increment(ctx, lotID, amount); err != nil {
		return fmt.Errorf("increment lot %s: %w", lotID, err)
	}
	return nil
}

// CreateLot persists a new lot with current quantity equal to the initial one.
func (s *Store) CreateLot(ctx context.Context, n NewLot) (*Lot, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	lot := n.build(s.now())
	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	return lot, nil
}

// Latest returns the most recently created lot of the product, locked, or
// apperror NotFound when the product has none.
func (s *Store) Latest(ctx context.Context, productID id.ID) (*Lot, error) {
	return s.repo.LatestForUpdate(ctx, productID)
}

// Receive records incoming stock for an existing product as a new lot.
func (s *Store) Receive(ctx context.Context, n NewLot) (*Lot, error) {
	if n.Quantity <= 0 {
		return nil, apperror.NewValidation("received quantity must be positive")
	}
	if n.Origin == OriginReturn {
		return nil, apperror.NewValidation("return lots are created by the return processor")
	}

	var lot *Lot
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := catalog.Lookup(ctx, s.products, n.ProductID); err != nil {
			return err
		}
		var err error
		lot, err = s.CreateLot(ctx, n)
		if err != nil {
			return err
		}
		return s.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntityLot,
			EntityID:   lot.ID,
			Action:     audit.ActionCreate,
			Payload:    lot,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock received",
		"lot_id", lot.ID,
		"product_id", lot.ProductID,
		"quantity", lot.InitialQuantity,
		"unit_cost", lot.UnitCost.String(),
	)
	return lot, nil
}

// ReceiveBatch records an opening-stock import: every lot is validated
// first, then all of them are written in one transaction. Products must exist.
func (s *Store) ReceiveBatch(ctx context.Context, batch []NewLot) ([]*Lot, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	now := s.now()
	out := make([]*Lot, 0, len(batch))
	for i, n := range batch {
		if n.Quantity <= 0 {
			return nil, apperror.NewValidation("received quantity must be positive").WithDetail("index", i)
		}
		if n.Origin == OriginReturn {
			return nil, apperror.NewValidation("return lots are created by the return processor").WithDetail("index", i)
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		out = append(out, n.build(now))
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		seen := make(map[id.ID]struct{})
		for _, l := range out {
			if _, ok := seen[l.ProductID]; ok {
				continue
			}
			if _, err := catalog.Lookup(ctx, s.products, l.ProductID); err != nil {
				return err
			}
			seen[l.ProductID] = struct{}{}
		}
		if err := s.repo.CreateBatch(ctx, out); err != nil {
			return fmt.Errorf("create lots: %w", err)
		}
		for _, l := range out {
			if err := s.journal.Record(ctx, audit.Entry{
				EntityType: audit.EntityLot,
				EntityID:   l.ID,
				Action:     audit.ActionCreate,
				Payload:    l,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock batch received", "lots", len(out))
	return out, nil
}

// Summary returns the derived stock position of a product.
func (s *Store) Summary(ctx context.Context, productID id.ID) (Summary, error) {
	lots, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return Summary{}, fmt.Errorf("list lots: %w", err)
	}
	return Summarize(productID, lots), nil
}

// ListByProduct returns all lots of a product without locking.
func (s *Store) ListByProduct(ctx context.Context, productID id.ID) ([]*Lot, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// Position is a stock summary enriched with pricing signals.
type Position struct {
	Summary
	SalePrice     *types.Money `json:"salePrice"`
	MarkupPercent *types.Money `json:"markupPercent"`
	BelowIdeal    bool         `json:"belowIdealMargin"`
	LowStock      bool         `json:"lowStock"`
}

// Position computes the stock summary of a product together with its markup
// over weighted-average cost and the low-stock flag.
func (s *Store) Position(ctx context.Context, cfg settings.Settings, productID id.ID) (Position, error) {
	p, err := catalog.Lookup(ctx, s.products, productID)
	if err != nil {
		return Position{}, err
	}
	sum, err := s.Summary(ctx, productID)
	if err != nil {
		return Position{}, err
	}

	pos := Position{
		Summary:   sum,
		SalePrice: p.SalePrice,
		LowStock:  sum.TotalQuantity <= cfg.LowStockThreshold,
	}
	if m, ok := Markup(p.Price(), sum.WeightedAverageCost); ok {
		pos.MarkupPercent = &m
		pos.BelowIdeal = m.LessThan(cfg.IdealMarginPercent)
	}
	return pos, nil
}

// Markup returns (price - cost) / cost * 100 rounded to cents. It is undefined
// when either value is not positive.
func Markup(price, cost types.Money) (types.Money, bool) {
	if !price.IsPositive() || !cost.IsPositive() {
		return types.Zero(), false
	}
	return types.RoundCurrency(price.Sub(cost).Div(cost).Mul(types.MustMoney("100"))), true
}
