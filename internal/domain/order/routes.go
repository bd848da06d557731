package order

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)

		orders.POST("/:id/status", h.AdvanceStatus)
		orders.POST("/:id/force-complete", h.ForceComplete)

		orders.POST("/:id/checklist", h.AddChecklistEntry)
		orders.PATCH("/:id/checklist/:entry_id", h.UpdateChecklistEntry)

		orders.POST("/templates", h.CreateTemplate)
		orders.DELETE("/templates/:id", h.DeactivateTemplate)
	}
}
