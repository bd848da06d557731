package contract

import "github.com/gin-gonic/gin"

// RegisterRoutes registers contract lifecycle routes. All of them mutate
// or expose client agreements, so the caller mounts them behind auth.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	contracts := r.Group("/contracts")
	{
		contracts.POST("", h.Create)
		contracts.GET("", h.List)
		contracts.GET("/:id", h.Get)
		contracts.DELETE("/:id", h.Delete)

		contracts.POST("/:id/sign", h.Sign)
		contracts.POST("/:id/release", h.Release)
		contracts.POST("/:id/reset", h.Reset)
		contracts.POST("/:id/cancel", h.Cancel)

		contracts.POST("/:id/successor", h.LinkSuccessor)
		contracts.GET("/:id/chain", h.Chain)
	}
}
