package renewal

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ispcrm/internal/pkg/response"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Evaluate handles POST /api/v1/renewals/evaluate. Normally the
// scheduler drives evaluation; the endpoint exists for operators.
func (h *Handler) Evaluate(c *gin.Context) {
	acted, err := h.manager.Evaluate(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"contracts_processed": acted})
}

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/renewals/evaluate", h.Evaluate)
}
