package handlers

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain"
	"consigna/internal/domain/credit"
	"consigna/internal/domain/supplier"
	"consigna/internal/infrastructure/http/v1/dto"
)

// SupplierHandler handles HTTP requests for the supplier catalog and the
// per-supplier credit statement.
type SupplierHandler struct {
	*BaseHandler
	service *supplier.Service
	credits *credit.Service
}

// NewSupplierHandler creates a new supplier handler.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service, credits *credit.Service) *SupplierHandler {
	return &SupplierHandler{BaseHandler: base, service: service, credits: credits}
}

func (h *SupplierHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sup, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), sup); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, sup)
}

func (h *SupplierHandler) Update(c *gin.Context) {
	supplierID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	sup, err := h.service.GetByID(ctx, supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(sup); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, sup); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sup)
}

func (h *SupplierHandler) Deactivate(c *gin.Context) {
	supplierID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), supplierID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *SupplierHandler) Get(c *gin.Context) {
	supplierID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	sup, err := h.service.GetByID(c.Request.Context(), supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sup)
}

func (h *SupplierHandler) List(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

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

// Balance reports the supplier's spendable and immature credit totals.
func (h *SupplierHandler) Balance(c *gin.Context) {
	supplierID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	available, err := h.credits.AvailableBalance(ctx, supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}
	pending, err := h.credits.PendingBalance(ctx, supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SupplierBalanceResponse{
		SupplierID: supplierID.String(),
		Available:  available.StringFixed(2),
		Pending:    pending.StringFixed(2),
	})
}

// Statement lists the supplier's credit ledger entries.
func (h *SupplierHandler) Statement(c *gin.Context) {
	supplierID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	filter := domain.DefaultListFilter()
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.credits.Statement(c.Request.Context(), supplierID, filter)
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

// RegisterRoutes registers supplier routes.
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Deactivate)
	rg.GET("/:id/balance", h.Balance)
	rg.GET("/:id/statement", h.Statement)
}
