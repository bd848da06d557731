package billing

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	billing := r.Group("/billing")
	{
		billing.POST("/generate", h.GenerateDue)
		billing.POST("/contracts/:id/generate", h.GenerateForContract)
	}
}
