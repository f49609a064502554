package dto

import (
	"time"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
)

// ProductRequest is the body of POST /products.
type ProductRequest struct {
	Name            string       `json:"name" binding:"required"`
	SalePrice       *types.Money `json:"salePrice"`
	Active          *bool        `json:"active"`
	SupplierID      *id.ID       `json:"supplierId"`
	LeadTimeDays    int          `json:"leadTimeDays"`
	MinCoverageDays int          `json:"minCoverageDays"`
}

// ToDomain builds a new product. Products are active unless told otherwise.
func (r ProductRequest) ToDomain() *catalog.Product {
	p := catalog.NewProduct(r.Name, r.SalePrice)
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.SupplierID = r.SupplierID
	p.LeadTimeDays = r.LeadTimeDays
	p.MinCoverageDays = r.MinCoverageDays
	return p
}

// LotRequest is the body of POST /products/:id/lots.
type LotRequest struct {
	Quantity   int64       `json:"quantity"`
	UnitCost   types.Money `json:"unitCost"`
	ArrivedAt  *time.Time  `json:"arrivedAt"`
	SupplierID *id.ID      `json:"supplierId"`
	Origin     string      `json:"origin"`
}

// ToDomain converts the body for productID.
func (r LotRequest) ToDomain(productID id.ID) lots.NewLot {
	n := lots.NewLot{
		ProductID:  productID,
		SupplierID: r.SupplierID,
		Quantity:   r.Quantity,
		UnitCost:   r.UnitCost,
		Origin:     lots.Origin(r.Origin),
	}
	if r.ArrivedAt != nil {
		n.ArrivedAt = *r.ArrivedAt
	}
	return n
}

// LotBatchRequest is the body of POST /lots/batch.
type LotBatchRequest struct {
	Lots []LotBatchItem `json:"lots" binding:"required,min=1,dive"`
}

// LotBatchItem is one lot of an opening-stock import.
type LotBatchItem struct {
	ProductID id.ID `json:"productId"`
	LotRequest
}

// ToDomain converts the body.
func (r LotBatchRequest) ToDomain() []lots.NewLot {
	out := make([]lots.NewLot, 0, len(r.Lots))
	for _, l := range r.Lots {
		out = append(out, l.ToDomain(l.ProductID))
	}
	return out
}

// StockResponse is the stock position of a product with its lots.
type StockResponse struct {
	lots.Position
	Lots []*lots.Lot `json:"lots"`
}
