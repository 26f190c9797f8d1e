package routes

import (
	"net/http"

	"nestly/handlers"
	"nestly/middleware"
	"nestly/utils"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the billing engine's HTTP surface. The reservation
// calendar, registration and admin dashboards live in other services; this one
// only exposes the run trigger and run record lookups.
func RegisterRoutes(r *gin.Engine, billingHandler *handlers.BillingHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})

	api := r.Group("/api/billing")
	api.Use(middleware.AdminAuthMiddleware())
	{
		api.POST("/run", billingHandler.TriggerRunHandler)
		api.GET("/runs/latest", billingHandler.LatestRunHandler)
		api.GET("/runs/:runID", billingHandler.GetRunHandler)
	}
}
