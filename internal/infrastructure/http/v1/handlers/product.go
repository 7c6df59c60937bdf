package handlers

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain"
	"consigna/internal/domain/inventory"
	"consigna/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles HTTP requests for the inventory ledger.
type ProductHandler struct {
	*BaseHandler
	ledger *inventory.Ledger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, ledger *inventory.Ledger) *ProductHandler {
	return &ProductHandler{BaseHandler: base, ledger: ledger}
}

func (h *ProductHandler) Register(c *gin.Context) {
	var req dto.RegisterProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.ledger.Register(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	p, err := h.ledger.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

func (h *ProductHandler) Remove(c *gin.Context) {
	productID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	if err := h.ledger.Remove(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ProductHandler) List(c *gin.Context) {
	filter := inventory.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Status = inventory.Status(c.Query("status"))
	filter.Ownership = inventory.Ownership(c.Query("ownership"))

	if supplierID, err := dto.ParseOptionalID("supplierId", strPtr(c.Query("supplierId"))); err == nil {
		filter.SupplierID = supplierID
	}

	result, err := h.ledger.List(c.Request.Context(), filter)
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

func strPtr(s string) *string { return &s }

// RegisterRoutes registers product routes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Register)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Remove)
}
