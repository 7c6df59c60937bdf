package handlers

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain"
	"consigna/internal/domain/returns"
	"consigna/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles HTTP requests for the return/exchange workflow.
type ReturnHandler struct {
	*BaseHandler
	service *returns.Service
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, service *returns.Service) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service}
}

func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	saleID, err := dto.ParseID("saleId", req.SaleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	request, err := h.service.Request(c.Request.Context(), saleID, returns.Kind(req.Kind), req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, request)
}

func (h *ReturnHandler) Decide(c *gin.Context) {
	requestID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	var req dto.DecideReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	decision, err := req.ToDecision()
	if err != nil {
		h.Error(c, err)
		return
	}

	request, err := h.service.Decide(c.Request.Context(), requestID, decision, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, request)
}

func (h *ReturnHandler) Get(c *gin.Context) {
	requestID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	request, err := h.service.GetByID(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, request)
}

func (h *ReturnHandler) List(c *gin.Context) {
	filter := returns.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Status = returns.Status(c.Query("status"))

	if saleID, err := dto.ParseOptionalID("saleId", strPtr(c.Query("saleId"))); err == nil {
		filter.SaleID = saleID
	}

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

// RegisterRoutes registers return routes.
func (h *ReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/decide", h.Decide)
}
