package routes

import (
	"github.com/codexchange/codexchange/controllers"
	"github.com/codexchange/codexchange/middleware"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter() *gin.Engine {
	router := gin.New()

	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())

	v1 := router.Group("/v1")
	{
		// Gateway-pushed notifications; authenticated by signature, not
		// by session.
		v1.POST("/webhooks/cashfree", controllers.CashfreeWebhook)

		// Browser return path after hosted checkout. Session-agnostic:
		// the redirect may arrive after the session has expired.
		v1.POST("/payments/verify", controllers.VerifyPayment)

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthMiddleware())
		{
			payments.POST("/orders", controllers.CreatePaymentOrder)
			payments.GET("/orders", controllers.GetOrderHistory)
			payments.GET("/orders/:id/invoice", controllers.DownloadInvoice)
		}

		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthMiddleware())
		{
			licenses.GET("", controllers.GetUserLicenses)
			licenses.POST("/:id/download", controllers.GenerateDownloadURL)
		}

		builder := v1.Group("/builder")
		builder.Use(middleware.AuthMiddleware())
		{
			builder.GET("/sales/export", controllers.ExportBuilderSales)
		}
	}

	return router
}
