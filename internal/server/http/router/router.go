package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/storekit/fulfillment/internal/config"
	"github.com/storekit/fulfillment/internal/server/http/handlers"
	"github.com/storekit/fulfillment/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.FulfillmentFacade, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)

	api := engine.Group("/api")
	api.POST("/webhooks/payment", webhookHandler.Receive)

	orders := api.Group("/orders")
	orders.Use(middleware.IdentityRequired())
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/:number", orderHandler.Get)
	orders.POST("/:number/cancel", orderHandler.Cancel)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.AdminAPIToken))
	admin.PATCH("/orders/:number/status", adminHandler.UpdateStatus)
	admin.POST("/inventory/adjust", adminHandler.AdjustInventory)

	return engine
}
