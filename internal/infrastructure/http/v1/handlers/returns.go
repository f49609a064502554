package handlers

import (
	"github.com/gin-gonic/gin"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles HTTP requests for sale returns.
type ReturnHandler struct {
	*BaseHandler
	sales   *sales.Manager
	returns *returns.Processor
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, manager *sales.Manager, processor *returns.Processor) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, sales: manager, returns: processor}
}

// Register handles POST /sales/:id/returns
func (h *ReturnHandler) Register(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg, ok := h.Settings(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ret, err := h.returns.Register(ctx, cfg, saleID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	sale, err := h.sales.Get(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.ReturnResponse{Return: ret, RestitutedValue: returns.RestitutedValue(ret, unitPrices(sale))})
}

// List handles GET /sales/:id/returns
func (h *ReturnHandler) List(c *gin.Context) {
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

	priceOf := unitPrices(sale)
	items := make([]dto.ReturnResponse, 0, len(rets))
	for _, r := range rets {
		items = append(items, dto.ReturnResponse{Return: r, RestitutedValue: returns.RestitutedValue(r, priceOf)})
	}
	h.OK(c, dto.ListResponse[dto.ReturnResponse]{Items: items})
}

// Restore handles POST /returns/lines/:id/restore
func (h *ReturnHandler) Restore(c *gin.Context) {
	lineID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	line, err := h.returns.RestorePending(c.Request.Context(), lineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, line)
}

func unitPrices(sale *sales.Sale) func(id.ID) types.Money {
	return func(lineItemID id.ID) types.Money {
		if item, ok := sale.Line(lineItemID); ok {
			return item.UnitPrice
		}
		return types.Zero()
	}
}
