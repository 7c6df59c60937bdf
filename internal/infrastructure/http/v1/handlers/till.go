package handlers

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain"
	"consigna/internal/domain/till"
	"consigna/internal/infrastructure/http/v1/dto"
)

// TillHandler handles HTTP requests for till sessions.
type TillHandler struct {
	*BaseHandler
	service *till.Service
}

// NewTillHandler creates a new till handler.
func NewTillHandler(base *BaseHandler, service *till.Service) *TillHandler {
	return &TillHandler{BaseHandler: base, service: service}
}

func (h *TillHandler) Open(c *gin.Context) {
	var req dto.OpenTillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	opening, err := dto.ParseMoney("openingBalance", req.OpeningBalance)
	if err != nil {
		h.Error(c, err)
		return
	}

	session, err := h.service.Open(c.Request.Context(), opening, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, session)
}

// Current returns the open session, if any.
func (h *TillHandler) Current(c *gin.Context) {
	session, err := h.service.Current(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, session)
}

func (h *TillHandler) RecordMovement(c *gin.Context) {
	sessionID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	var req dto.TillMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	amount, err := dto.ParseMoney("amount", req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.RecordMovement(c.Request.Context(), sessionID, amount, till.MovementKind(req.Kind), req.Note, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, movement)
}

func (h *TillHandler) Close(c *gin.Context) {
	sessionID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	var req dto.CloseTillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	counted, err := dto.ParseMoney("countedBalance", req.CountedBalance)
	if err != nil {
		h.Error(c, err)
		return
	}

	session, err := h.service.Close(c.Request.Context(), sessionID, counted, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, session)
}

func (h *TillHandler) Get(c *gin.Context) {
	sessionID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	session, err := h.service.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, session)
}

func (h *TillHandler) Movements(c *gin.Context) {
	sessionID, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	movements, err := h.service.ListMovements(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movements)
}

func (h *TillHandler) List(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.OrderBy = c.Query("orderBy")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.ListSessions(c.Request.Context(), filter)
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

// RegisterRoutes registers till routes.
func (h *TillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Open)
	rg.GET("/current", h.Current)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/movements", h.RecordMovement)
	rg.GET("/:id/movements", h.Movements)
	rg.POST("/:id/close", h.Close)
}
