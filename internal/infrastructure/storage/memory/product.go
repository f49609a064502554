package memory

import (
	"context"
	"maps"
	"slices"
	"strings"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
)

// ProductRepo implements catalog.Repository.
type ProductRepo struct{ s *Store }

var _ catalog.Repository = (*ProductRepo)(nil)

// Products returns the product repository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	defer r.s.lock(ctx)()
	for _, existing := range r.s.st.products {
		if strings.EqualFold(existing.Name, p.Name) {
			return apperror.NewConflict("product name already exists").WithDetail("name", p.Name)
		}
	}
	r.s.st.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p *catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.products[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID)
	}
	r.s.st.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.st.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]*catalog.Product, error) {
	defer r.s.lock(ctx)()
	out := make([]*catalog.Product, 0, len(r.s.st.products))
	for _, p := range r.s.st.products {
		out = append(out, &p)
	}
	slices.SortFunc(out, func(a, b *catalog.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Delete removes the product and its lots. Like the sale line foreign key
// on postgres, it refuses a product that was sold.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.products[productID]; !ok {
		return apperror.NewNotFound("product", productID)
	}
	if r.s.productSold(productID) {
		return apperror.NewProductHasSales(productID.String())
	}
	maps.DeleteFunc(r.s.st.lots, func(_ id.ID, l lots.Lot) bool { return l.ProductID == productID })
	delete(r.s.st.products, productID)
	return nil
}
