package contract

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ispcrm/internal/middleware"
	"ispcrm/internal/pkg/response"
	"ispcrm/internal/pkg/validator"
)

// Handler handles contract HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/contracts
func (h *Handler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid contract data", errs)
		return
	}

	contract, err := h.service.Create(c.Request.Context(), &req, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid contract data")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, contract)
}

// Get handles GET /api/v1/contracts/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	contract, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// List handles GET /api/v1/contracts
func (h *Handler) List(c *gin.Context) {
	clientID, _ := strconv.ParseInt(c.Query("client_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contracts, total, err := h.service.List(c.Request.Context(), clientID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"contracts": contracts, "total": total})
}

// Sign handles POST /api/v1/contracts/:id/sign
func (h *Handler) Sign(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid signature data", errs)
		return
	}

	contract, err := h.service.Sign(c.Request.Context(), id, req.SignatureHash, req.DigitalSignature, middleware.Actor(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrSignatureRequired):
			response.Error(c, http.StatusUnprocessableEntity, "SIGNATURE_REQUIRED", "Signature hash is required")
		case errors.Is(err, ErrInvalidTransition):
			response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Contract is not awaiting signature")
		default:
			notFoundOrInternal(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// Release handles POST /api/v1/contracts/:id/release
func (h *Handler) Release(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	contract, err := h.service.Release(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Contract must be signed before release")
			return
		}
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// Reset handles POST /api/v1/contracts/:id/reset
func (h *Handler) Reset(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	contract, err := h.service.ResetToAwaiting(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// Cancel handles POST /api/v1/contracts/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	contract, err := h.service.Cancel(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// LinkSuccessor handles POST /api/v1/contracts/:id/successor
func (h *Handler) LinkSuccessor(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	var req LinkSuccessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	err := h.service.LinkSuccessor(c.Request.Context(), id, req.SuccessorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCycleDetected):
			response.Error(c, http.StatusInternalServerError, "CYCLE_DETECTED", "Linking would corrupt the renewal chain")
		case errors.Is(err, ErrAlreadyLinked):
			response.Error(c, http.StatusConflict, "ALREADY_LINKED", "Contract already has a successor")
		default:
			notFoundOrInternal(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"linked": true})
}

// Chain handles GET /api/v1/contracts/:id/chain
func (h *Handler) Chain(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	chain, err := h.service.Chain(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCycleDetected) {
			response.Error(c, http.StatusInternalServerError, "CYCLE_DETECTED", "Renewal chain is corrupted")
			return
		}
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, ChainResponse{Contracts: chain, Length: len(chain)})
}

// Delete handles DELETE /api/v1/contracts/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := contractID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		notFoundOrInternal(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func contractID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid contract ID")
		return 0, false
	}
	return id, true
}

func notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
		return
	}
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}
