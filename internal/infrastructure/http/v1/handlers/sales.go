package handlers

import (
	"github.com/gin-gonic/gin"

	"lotledger/internal/domain/profit"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales.
type SaleHandler struct {
	*BaseHandler
	sales   *sales.Manager
	returns *returns.Processor
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, manager *sales.Manager, processor *returns.Processor) *SaleHandler {
	return &SaleHandler{BaseHandler: base, sales: manager, returns: processor}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg, ok := h.Settings(c)
	if !ok {
		return
	}

	sale, err := h.sales.Create(c.Request.Context(), cfg, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.CreatedResponse{ID: sale.ID.String(), Number: sale.Number})
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	f := q.ToFilter()
	items, err := h.sales.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []*sales.Sale{}
	}
	h.OK(c, dto.ListResponse[*sales.Sale]{Items: items, Limit: f.Limit, Offset: f.Offset})
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sale, err := h.sales.Get(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	rets, err := h.returns.ListBySale(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SaleResponse{Sale: sale, Figures: profit.Calculate(sale, rets)})
}

// Update handles PUT /sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg, ok := h.Settings(c)
	if !ok {
		return
	}

	sale, err := h.sales.Edit(c.Request.Context(), cfg, saleID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SaleResponse{Sale: sale, Figures: profit.Calculate(sale, nil)})
}

// Delete handles DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.sales.Delete(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	sale, err := h.sales.Cancel(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SaleResponse{Sale: sale, Figures: profit.Calculate(sale, nil)})
}
