package fifo

import (
	"context"
	"fmt"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/lots"
	"lotledger/pkg/logger"
)

// LotStore is the subset of lots.Store the engine needs.
type LotStore interface {
	ListAvailable(ctx context.Context, productID id.ID) ([]*lots.Lot, error)
	Decrement(ctx context.Context, lot *lots.Lot, amount int64) error
	Increment(ctx context.Context, lotID id.ID, amount int64) error
	Latest(ctx context.Context, productID id.ID) (*lots.Lot, error)
	CreateLot(ctx context.Context, n lots.NewLot) (*lots.Lot, error)
}

var _ LotStore = (*lots.Store)(nil)

// Result is the outcome of a consumption.
type Result struct {
	Trail     RecordedTrail
	TotalCost types.Money
}

// Engine consumes and restores lots. All methods must run inside a transaction.
type Engine struct {
	lots LotStore
}

// NewEngine creates a FIFO engine over a lot store.
func NewEngine(store LotStore) *Engine {
	return &Engine{lots: store}
}

// Available returns the product's total stock, locking its lots.
func (e *Engine) Available(ctx context.Context, productID id.ID) (int64, error) {
	available, err := e.lots.ListAvailable(ctx, productID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, l := range available {
		total += l.CurrentQuantity
	}
	return total, nil
}

// Consume takes qty units of the product from its oldest lots first.
// No lot is touched unless the whole quantity is available.
func (e *Engine) Consume(ctx context.Context, productID id.ID, qty int64) (Result, error) {
	if qty <= 0 {
		return Result{}, apperror.NewValidation("quantity must be positive").WithDetail("quantity", qty)
	}

	available, err := e.lots.ListAvailable(ctx, productID)
	if err != nil {
		return Result{}, err
	}

	var total int64
	for _, l := range available {
		total += l.CurrentQuantity
	}
	if total < qty {
		return Result{}, apperror.NewInsufficientStock(productID.String(), qty, total)
	}

	res := Result{TotalCost: types.Zero()}
	remaining := qty
	for _, l := range available {
		if remaining == 0 {
			break
		}
		taken := min(l.CurrentQuantity, remaining)
		if taken == 0 {
			continue
		}
		unitCost := l.UnitCost
		if err := e.lots.Decrement(ctx, l, taken); err != nil {
			return Result{}, err
		}
		res.Trail = append(res.Trail, Draw{LotID: l.ID, Quantity: taken, UnitCost: unitCost})
		res.TotalCost = res.TotalCost.Add(types.Times(unitCost, taken))
		remaining -= taken
	}

	logger.Debug(ctx, "fifo consumed",
		"product_id", productID,
		"quantity", qty,
		"lots", len(res.Trail),
		"cost", res.TotalCost.String(),
	)
	return res, nil
}

// Restore returns every unit of the trail to the lots it came from.
func (e *Engine) Restore(ctx context.Context, trail Trail) error {
	_, err := e.RestorePartial(ctx, trail, trail.Units())
	return err
}

// RestorePartial returns qty units walking the trail in recorded order and
// reports where they went.
func (e *Engine) RestorePartial(ctx context.Context, trail Trail, qty int64) (RecordedTrail, error) {
	if qty < 0 {
		return nil, apperror.NewBusinessRule(apperror.CodeInvalidReturnQuantity, "Return quantity cannot be negative")
	}
	if qty > trail.Units() {
		return nil, apperror.NewBusinessRule(apperror.CodeInvalidReturnQuantity, "Return quantity exceeds consumed quantity").
			WithDetail("requested", qty).
			WithDetail("consumed", trail.Units())
	}
	if qty == 0 {
		return nil, nil
	}

	switch t := trail.(type) {
	case RecordedTrail:
		return e.restoreRecorded(ctx, t, qty)
	case LegacyTrail:
		return e.restoreLegacy(ctx, t, qty)
	default:
		return nil, fmt.Errorf("unsupported trail type %T", trail)
	}
}

func (e *Engine) restoreRecorded(ctx context.Context, t RecordedTrail, qty int64) (RecordedTrail, error) {
	var restored RecordedTrail
	remaining := qty
	for _, d := range t {
		if remaining == 0 {
			break
		}
		put := min(d.Quantity, remaining)
		if put == 0 {
			continue
		}
		if err := e.lots.Increment(ctx, d.LotID, put); err != nil {
			return nil, err
		}
		restored = append(restored, Draw{LotID: d.LotID, Quantity: put, UnitCost: d.UnitCost})
		remaining -= put
	}
	return restored, nil
}

func (e *Engine) restoreLegacy(ctx context.Context, t LegacyTrail, qty int64) (RecordedTrail, error) {
	latest, err := e.lots.Latest(ctx, t.ProductID)
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	if latest == nil {
		lot, err := e.lots.CreateLot(ctx, lots.NewLot{
			ProductID: t.ProductID,
			Quantity:  qty,
			UnitCost:  types.RoundCurrency(t.AverageCost),
			Origin:    lots.OriginReturn,
		})
		if err != nil {
			return nil, err
		}
		logger.Warn(ctx, "legacy restore created return lot", "product_id", t.ProductID, "lot_id", lot.ID, "quantity", qty)
		return RecordedTrail{{LotID: lot.ID, Quantity: qty, UnitCost: lot.UnitCost}}, nil
	}

	if err := e.lots.Increment(ctx, latest.ID, qty); err != nil {
		return nil, err
	}
	logger.Warn(ctx, "legacy restore into latest lot", "product_id", t.ProductID, "lot_id", latest.ID, "quantity", qty)
	return RecordedTrail{{LotID: latest.ID, Quantity: qty, UnitCost: latest.UnitCost}}, nil
}
