package billing

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/pkg/response"
)

type Handler struct {
	generator *Generator
}

func NewHandler(generator *Generator) *Handler {
	return &Handler{generator: generator}
}

// GenerateDue handles POST /api/v1/billing/generate. Normally the
// scheduler drives generation; the endpoint exists for operators.
func (h *Handler) GenerateDue(c *gin.Context) {
	created, err := h.generator.GenerateDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"invoices_created": created})
}

// GenerateForContract handles POST /api/v1/billing/contracts/:id/generate.
func (h *Handler) GenerateForContract(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid contract ID")
		return
	}

	created, err := h.generator.GenerateForContract(c.Request.Context(), id, time.Now().UTC())
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"invoices_created": created})
	case errors.Is(err, contract.ErrNotFound):
		response.Error(c, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
	case errors.Is(err, ErrNotBillable):
		response.Error(c, http.StatusConflict, "CONTRACT_NOT_BILLABLE", "Contract is not released or has no payment schedule")
	case errors.Is(err, ErrScheduleExhausted):
		response.ErrorWithDetails(c, http.StatusConflict, "SCHEDULE_EXHAUSTED",
			"Billing schedule ran past the contract validity window", gin.H{"invoices_created": created})
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
