package memory

import (
	"context"
	"slices"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/lots"
)

// LotRepo implements lots.Repository. Row locks are implied by the store-wide
// transaction mutex.
type LotRepo struct{ s *Store }

var _ lots.Repository = (*LotRepo)(nil)

// Lots returns the lot repository.
func (s *Store) Lots() *LotRepo { return &LotRepo{s: s} }

func (r *LotRepo) Create(ctx context.Context, lot *lots.Lot) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.products[lot.ProductID]; !ok {
		return apperror.NewNotFound("product", lot.ProductID)
	}
	r.s.st.lots[lot.ID] = *lot
	return nil
}

func (r *LotRepo) CreateBatch(ctx context.Context, batch []*lots.Lot) error {
	defer r.s.lock(ctx)()
	for _, l := range batch {
		if _, ok := r.s.st.products[l.ProductID]; !ok {
			return apperror.NewNotFound("product", l.ProductID)
		}
	}
	for _, l := range batch {
		r.s.st.lots[l.ID] = *l
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.st.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID)
	}
	return &l, nil
}

func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*lots.Lot, error) {
	defer r.s.lock(ctx)()
	out := r.byProduct(productID, func(l *lots.Lot) bool { return l.CurrentQuantity > 0 })
	slices.SortFunc(out, fifoOrder)
	return out, nil
}

func (r *LotRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*lots.Lot, error) {
	defer r.s.lock(ctx)()
	out := r.byProduct(productID, nil)
	slices.SortFunc(out, fifoOrder)
	return out, nil
}

func (r *LotRepo) LatestForUpdate(ctx context.Context, productID id.ID) (*lots.Lot, error) {
	defer r.s.lock(ctx)()
	var latest *lots.Lot
	for _, l := range r.byProduct(productID, nil) {
		if latest == nil || l.CreatedAt.After(latest.CreatedAt) ||
			(l.CreatedAt.Equal(latest.CreatedAt) && id.Compare(l.ID, latest.ID) > 0) {
			latest = l
		}
	}
	if latest == nil {
		return nil, apperror.NewNotFound("lot", productID)
	}
	return latest, nil
}

func (r *LotRepo) Decrement(ctx context.Context, lotID id.ID, amount int64) (int64, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.st.lots[lotID]
	if !ok {
		return 0, apperror.NewNotFound("lot", lotID)
	}
	if l.CurrentQuantity < amount {
		return 0, apperror.NewInsufficientLotQuantity(lotID.String(), amount, l.CurrentQuantity)
	}
	l.CurrentQuantity -= amount
	r.s.st.lots[lotID] = l
	return l.CurrentQuantity, nil
}

func (r *LotRepo) Increment(ctx context.Context, lotID id.ID, amount int64) (int64, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.st.lots[lotID]
	if !ok {
		return 0, apperror.NewNotFound("lot", lotID)
	}
	l.CurrentQuantity += amount
	r.s.st.lots[lotID] = l
	return l.CurrentQuantity, nil
}

func (r *LotRepo) byProduct(productID id.ID, keep func(*lots.Lot) bool) []*lots.Lot {
	var out []*lots.Lot
	for _, l := range r.s.st.lots {
		if l.ProductID != productID {
			continue
		}
		if keep != nil && !keep(&l) {
			continue
		}
		out = append(out, &l)
	}
	return out
}

func fifoOrder(a, b *lots.Lot) int {
	switch {
	case lots.Less(a, b):
		return -1
	case lots.Less(b, a):
		return 1
	}
	return 0
}
