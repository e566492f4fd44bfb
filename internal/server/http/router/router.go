package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/tecelana/fichas/internal/server/http/handlers"
	"github.com/tecelana/fichas/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ShopFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	checkoutHandler := handlers.NewCheckoutHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)
	accessHandler := handlers.NewAccessHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/health", healthHandler.Check)
	engine.POST("/payments/notifications", webhookHandler.Notify)
	engine.GET("/order-access/:token", accessHandler.OrderAccess)
	engine.GET("/download/:token", accessHandler.Download)

	api := engine.Group("/api")
	api.POST("/checkout", checkoutHandler.Create)

	return engine
}
