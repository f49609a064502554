package memory

import (
	"context"
	"slices"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/fifo"
	"lotledger/internal/domain/sales"
)

// SaleRepo implements sales.Repository.
type SaleRepo struct{ s *Store }

var _ sales.Repository = (*SaleRepo)(nil)

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.sales[sale.ID]; ok {
		return apperror.NewConflict("sale already exists")
	}
	header := copySale(sale)
	header.Lines = nil
	r.s.st.sales[sale.ID] = header
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, sale *sales.Sale) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.sales[sale.ID]
	if !ok {
		return apperror.NewNotFound("sale", sale.ID)
	}
	header := copySale(sale)
	header.Lines = cur.Lines
	r.s.st.sales[sale.ID] = header
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.sales[saleID]; !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	delete(r.s.st.sales, saleID)
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	defer r.s.lock(ctx)()
	sale, ok := r.s.st.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return copySale(sale), nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) SaveLines(ctx context.Context, sale *sales.Sale) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.sales[sale.ID]
	if !ok {
		return apperror.NewNotFound("sale", sale.ID)
	}
	for _, l := range sale.Lines {
		cur.Lines = append(cur.Lines, copyLine(l))
	}
	return nil
}

func (r *SaleRepo) DeleteLines(ctx context.Context, saleID id.ID) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.sales[saleID]
	if !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	cur.Lines = nil
	return nil
}

func (r *SaleRepo) DeleteDraws(ctx context.Context, saleID id.ID) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.sales[saleID]
	if !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	for _, l := range cur.Lines {
		l.Draws = nil
	}
	return nil
}

func (r *SaleRepo) List(ctx context.Context, f sales.ListFilter) ([]*sales.Sale, error) {
	defer r.s.lock(ctx)()
	var out []*sales.Sale
	for _, s := range r.s.st.sales {
		if f.From != nil && s.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.Date.Before(*f.To) {
			continue
		}
		if f.Channel != "" && s.Channel != f.Channel {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		header := copySale(s)
		header.Lines = nil
		out = append(out, header)
	}
	slices.SortFunc(out, func(a, b *sales.Sale) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return id.Compare(b.ID, a.ID)
	})

	if f.Offset >= uint64(len(out)) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < uint64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

func copySale(s *sales.Sale) *sales.Sale {
	c := *s
	c.Lines = make([]*sales.LineItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		c.Lines = append(c.Lines, copyLine(l))
	}
	return &c
}

func copyLine(l *sales.LineItem) *sales.LineItem {
	c := *l
	c.Draws = append(fifo.RecordedTrail(nil), l.Draws...)
	return &c
}

func (r *SaleRepo) ReferencesProduct(ctx context.Context, productID id.ID) (bool, error) {
	defer r.s.lock(ctx)()
	return r.s.productSold(productID), nil
}

func (s *Store) productSold(productID id.ID) bool {
	for _, sale := range s.st.sales {
		for _, l := range sale.Lines {
			if l.ProductID == productID {
				return true
			}
		}
	}
	return false
}
