package handlers

import (
	"github.com/gin-gonic/gin"

	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles HTTP requests for products and their lots.
type ProductHandler struct {
	*BaseHandler
	products catalog.Repository
	catalog  *catalog.Service
	lots     *lots.Store
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, products catalog.Repository, service *catalog.Service, store *lots.Store) *ProductHandler {
	return &ProductHandler{BaseHandler: base, products: products, catalog: service, lots: store}
}

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToDomain()
	if err := p.Validate(); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.products.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	items, err := h.products.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []*catalog.Product{}
	}
	h.OK(c, dto.ListResponse[*catalog.Product]{Items: items})
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.products.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	current, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	p := req.ToDomain()
	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	if err := p.Validate(); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.products.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Delete handles DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Stock handles GET /products/:id/stock
func (h *ProductHandler) Stock(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	cfg, ok := h.Settings(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	pos, err := h.lots.Position(ctx, cfg, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	items, err := h.lots.ListByProduct(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []*lots.Lot{}
	}
	h.OK(c, dto.StockResponse{Position: pos, Lots: items})
}

// ReceiveLot handles POST /products/:id/lots
func (h *ProductHandler) ReceiveLot(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.LotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := h.lots.Receive(c.Request.Context(), req.ToDomain(productID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// ReceiveBatch handles POST /lots/batch
func (h *ProductHandler) ReceiveBatch(c *gin.Context) {
	var req dto.LotBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.lots.ReceiveBatch(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.ListResponse[*lots.Lot]{Items: created})
}
