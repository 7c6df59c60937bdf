package handlers

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain"
	"consigna/internal/domain/sale"
	"consigna/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for the sale orchestrator.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.CreateSaleResponse{Sale: result.Sale}
	if result.CreditRemainder.IsPositive() {
		resp.CreditRemainder = result.CreditRemainder.StringFixed(2)
	}
	h.Created(c, resp)
}

// Confirm applies the payment gateway outcome to a pending online sale.
// Wired to the gateway's webhook.
func (h *SaleHandler) Confirm(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	var req dto.ConfirmSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ConfirmPending(c.Request.Context(), saleID, req.ToOutcome()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "sale outcome applied")
}

func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), saleID, h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "sale cancelled")
}

func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	s, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

func (h *SaleHandler) List(c *gin.Context) {
	filter := sale.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Status = sale.Status(c.Query("status"))
	filter.Channel = sale.Channel(c.Query("channel"))

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers sale routes.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/cancel", h.Cancel)
}
