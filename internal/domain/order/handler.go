package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ispcrm/internal/middleware"
	"ispcrm/internal/pkg/response"
	"ispcrm/internal/pkg/validator"
)

// Handler handles service-order HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid order data", errs)
		return
	}

	o, err := h.service.CreateOrder(c.Request.Context(), &req, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid order data")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, o)
}

// Get handles GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// List handles GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	clientID, _ := strconv.ParseInt(c.Query("client_id"), 10, 64)
	status := Status(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.service.List(c.Request.Context(), clientID, status, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"orders": orders, "total": total})
}

// AdvanceStatus handles POST /api/v1/orders/:id/status
func (h *Handler) AdvanceStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	o, err := h.service.AdvanceStatus(c.Request.Context(), id, Status(req.Status), middleware.Actor(c))
	if err != nil {
		h.transitionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, o)
}

// ForceComplete handles POST /api/v1/orders/:id/force-complete
func (h *Handler) ForceComplete(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	o, err := h.service.ForceComplete(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		h.transitionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, o)
}

// UpdateChecklistEntry handles PATCH /api/v1/orders/:id/checklist/:entry_id
func (h *Handler) UpdateChecklistEntry(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil || entryID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid checklist entry ID")
		return
	}

	var req UpdateChecklistEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	p, err := h.service.UpdateChecklistEntry(c.Request.Context(), id, entryID, &req, middleware.Actor(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderClosed):
			response.Error(c, http.StatusConflict, "ORDER_CLOSED", "Checklist is frozen after completion")
		case errors.Is(err, ErrEntryNotFound):
			response.Error(c, http.StatusNotFound, "ENTRY_NOT_FOUND", "Checklist entry not found")
		default:
			notFoundOrInternal(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, p)
}

// AddChecklistEntry handles POST /api/v1/orders/:id/checklist
func (h *Handler) AddChecklistEntry(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req AddChecklistEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid checklist entry", errs)
		return
	}

	p, err := h.service.AddChecklistEntry(c.Request.Context(), id, &req, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, ErrOrderClosed) {
			response.Error(c, http.StatusConflict, "ORDER_CLOSED", "Checklist is frozen after completion")
			return
		}
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

// CreateTemplate handles POST /api/v1/orders/templates
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid template data", errs)
		return
	}

	item, err := h.service.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid template data")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// DeactivateTemplate handles DELETE /api/v1/orders/templates/:id
func (h *Handler) DeactivateTemplate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid template ID")
		return
	}

	if err := h.service.DeactivateTemplate(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.Error(c, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

func (h *Handler) transitionError(c *gin.Context, err error) {
	var incomplete *ChecklistIncompleteError
	switch {
	case errors.As(err, &incomplete):
		response.ErrorWithDetails(c, http.StatusConflict, "CHECKLIST_INCOMPLETE",
			"Mandatory checklist items are still open", gin.H{"pending": incomplete.Pending})
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		notFoundOrInternal(c, err)
	}
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID")
		return 0, false
	}
	return id, true
}

func notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Service order not found")
		return
	}
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}
