package invoice

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ispcrm/internal/middleware"
	"ispcrm/internal/pkg/response"
	"ispcrm/internal/pkg/validator"
)

// Handler handles invoice and payment HTTP requests
type Handler struct {
	reconciler *Reconciler
}

func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Get handles GET /api/v1/invoices/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.reconciler.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, inv)
}

// List handles GET /api/v1/invoices
func (h *Handler) List(c *gin.Context) {
	clientID, _ := strconv.ParseInt(c.Query("client_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := Status(c.Query("status"))

	invoices, total, err := h.reconciler.List(c.Request.Context(), clientID, status, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"invoices": invoices, "total": total})
}

// ApplyPayment handles POST /api/v1/invoices/:id/payments
func (h *Handler) ApplyPayment(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid payment data", errs)
		return
	}

	inv, payment, err := h.reconciler.ApplyPayment(c.Request.Context(), id, &req, middleware.Actor(c))
	if err != nil {
		var overpay *OverpaymentError
		switch {
		case errors.As(err, &overpay):
			response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "OVERPAYMENT_REJECTED", overpay.Error(), gin.H{
				"total":     overpay.Total.StringFixed(2),
				"attempted": overpay.Attempted.StringFixed(2),
			})
		case errors.Is(err, ErrInvoiceInactive):
			response.Error(c, http.StatusConflict, "INVOICE_INACTIVE", "Invoice has been deactivated")
		case errors.Is(err, ErrInvoiceCancelled):
			response.Error(c, http.StatusConflict, "INVOICE_CANCELLED", "Invoice is cancelled")
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid payment amount")
		case errors.Is(err, ErrConflict):
			response.Error(c, http.StatusConflict, "CONFLICT", "Concurrent update, retry the payment")
		default:
			notFoundOrInternal(c, err)
		}
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"invoice": inv, "payment": payment})
}

// ListPayments handles GET /api/v1/invoices/:id/payments
func (h *Handler) ListPayments(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	payments, err := h.reconciler.ListPayments(c.Request.Context(), id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payments": payments})
}

// Balance handles GET /api/v1/invoices/:id/balance
func (h *Handler) Balance(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	balance, err := h.reconciler.Balance(c.Request.Context(), id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, balance)
}

// Cancel handles POST /api/v1/invoices/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.reconciler.CancelInvoice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInvoiceCancelled) || errors.Is(err, ErrConflict) {
			response.Error(c, http.StatusConflict, "CANNOT_CANCEL", "Invoice cannot be cancelled in its current state")
			return
		}
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, inv)
}

// Deactivate handles DELETE /api/v1/invoices/:id
func (h *Handler) Deactivate(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	if err := h.reconciler.DeactivateInvoice(c.Request.Context(), id); err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

// SweepOverdue handles POST /api/v1/invoices/sweep-overdue. Normally the
// scheduler drives the sweep; the endpoint exists for operators.
func (h *Handler) SweepOverdue(c *gin.Context) {
	swept, err := h.reconciler.SweepOverdue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"swept": swept})
}

func invoiceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid invoice ID")
		return 0, false
	}
	return id, true
}

func notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "INVOICE_NOT_FOUND", "Invoice not found")
		return
	}
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}
