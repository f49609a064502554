package memory

import (
	"context"
	"slices"
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
)

// ReturnRepo implements returns.Repository.
type ReturnRepo struct{ s *Store }

var (
	_ returns.Repository = (*ReturnRepo)(nil)
	_ sales.ReturnLookup = (*ReturnRepo)(nil)
)

// Returns returns the return repository.
func (s *Store) Returns() *ReturnRepo { return &ReturnRepo{s: s} }

func (r *ReturnRepo) Create(ctx context.Context, ret *returns.Return) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.sales[ret.SaleID]; !ok {
		return apperror.NewNotFound("sale", ret.SaleID)
	}
	r.s.st.returns[ret.ID] = copyReturn(ret)
	return nil
}

func (r *ReturnRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*returns.Return, error) {
	defer r.s.lock(ctx)()
	var out []*returns.Return
	for _, ret := range r.s.st.returns {
		if ret.SaleID == saleID {
			out = append(out, copyReturn(ret))
		}
	}
	slices.SortFunc(out, func(a, b *returns.Return) int {
		if c := a.ReturnedAt.Compare(b.ReturnedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *ReturnRepo) Totals(ctx context.Context, saleID id.ID) (map[id.ID]returns.Totals, error) {
	defer r.s.lock(ctx)()
	totals := make(map[id.ID]returns.Totals)
	for _, ret := range r.s.st.returns {
		if ret.SaleID != saleID {
			continue
		}
		for _, l := range ret.Lines {
			t := totals[l.LineItemID]
			t.Returned += l.Quantity
			if l.Restored {
				t.Restored += l.Quantity
			}
			totals[l.LineItemID] = t
		}
	}
	return totals, nil
}

func (r *ReturnRepo) HasReturns(ctx context.Context, saleID id.ID) (bool, error) {
	defer r.s.lock(ctx)()
	for _, ret := range r.s.st.returns {
		if ret.SaleID == saleID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ReturnRepo) GetLineForUpdate(ctx context.Context, lineID id.ID) (*returns.Line, error) {
	defer r.s.lock(ctx)()
	if l := r.findLine(lineID); l != nil {
		c := *l
		return &c, nil
	}
	return nil, apperror.NewNotFound("return line", lineID)
}

func (r *ReturnRepo) MarkRestored(ctx context.Context, lineID id.ID, at time.Time) error {
	defer r.s.lock(ctx)()
	l := r.findLine(lineID)
	if l == nil {
		return apperror.NewNotFound("return line", lineID)
	}
	l.Restored = true
	l.RestoredAt = &at
	return nil
}

func (r *ReturnRepo) findLine(lineID id.ID) *returns.Line {
	for _, ret := range r.s.st.returns {
		for _, l := range ret.Lines {
			if l.ID == lineID {
				return l
			}
		}
	}
	return nil
}

func copyReturn(ret *returns.Return) *returns.Return {
	c := *ret
	c.Lines = make([]*returns.Line, 0, len(ret.Lines))
	for _, l := range ret.Lines {
		lc := *l
		lc.Placement = nil
		c.Lines = append(c.Lines, &lc)
	}
	return &c
}
