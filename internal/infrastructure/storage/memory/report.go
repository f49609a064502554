package memory

import (
	"context"
	"time"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/reports"
	"lotledger/internal/domain/sales"
)

// ReportRepo implements reports.Repository over the store maps.
type ReportRepo struct{ s *Store }

var _ reports.Repository = (*ReportRepo)(nil)

// Reports returns the report repository.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

func (r *ReportRepo) ProductSales(ctx context.Context, from, to time.Time) ([]reports.ProductSales, error) {
	defer r.s.lock(ctx)()
	byProduct := make(map[id.ID]*reports.ProductSales)
	var order []id.ID
	for _, s := range r.s.st.sales {
		if s.Status != sales.StatusCompleted || s.Date.Before(from) || !s.Date.Before(to) {
			continue
		}
		for _, l := range s.Lines {
			row, ok := byProduct[l.ProductID]
			if !ok {
				row = &reports.ProductSales{
					ProductID:   l.ProductID,
					ProductName: r.s.st.products[l.ProductID].Name,
					Revenue:     types.Zero(),
					Cost:        types.Zero(),
				}
				byProduct[l.ProductID] = row
				order = append(order, l.ProductID)
			}
			row.Quantity += l.Quantity
			row.Revenue = row.Revenue.Add(types.Times(l.UnitPrice, l.Quantity))
			row.Cost = row.Cost.Add(l.RegisteredCost)
		}
	}

	out := make([]reports.ProductSales, 0, len(order))
	for _, productID := range order {
		out = append(out, *byProduct[productID])
	}
	return out, nil
}

func (r *ReportRepo) StockValue(ctx context.Context) (types.Money, error) {
	defer r.s.lock(ctx)()
	total := types.Zero()
	for _, l := range r.s.st.lots {
		if l.CurrentQuantity <= 0 || !r.s.st.products[l.ProductID].Active {
			continue
		}
		total = total.Add(types.Times(l.UnitCost, l.CurrentQuantity))
	}
	return total, nil
}
