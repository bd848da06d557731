package invoice

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	invoices := r.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.GET("/:id/balance", h.Balance)
		invoices.GET("/:id/payments", h.ListPayments)

		invoices.POST("/:id/payments", h.ApplyPayment)
		invoices.POST("/:id/cancel", h.Cancel)
		invoices.DELETE("/:id", h.Deactivate)

		invoices.POST("/sweep-overdue", h.SweepOverdue)
	}
}
