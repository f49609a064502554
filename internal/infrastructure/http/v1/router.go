// Package v1 provides HTTP API version 1.
package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"lotledger/internal/domain/settings"
	"lotledger/internal/infrastructure/http/v1/handlers"
	"lotledger/internal/infrastructure/http/v1/middleware"
	"lotledger/internal/ledger"
	"lotledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// AppName is reported by the liveness probe
	AppName string

	// Ledger exposes the domain services
	Ledger *ledger.Ledger

	// Settings supplies fee rates, thresholds and the return window per request
	Settings settings.Provider

	// Logger for request logging
	Logger *logger.Logger

	// Health pings the storage backend; nil means always ready
	Health func(ctx context.Context) error
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	// Recovery sits inside ErrorHandler so a recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Operator())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.AppName, cfg.Health)
	health := router.Group("/health")
	{
		health.GET("", healthHandler.Live)
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler(cfg.Settings)
	v1 := router.Group("/api/v1")
	registerSaleRoutes(v1, base, cfg.Ledger)
	registerProductRoutes(v1, base, cfg.Ledger)

	reportHandler := handlers.NewReportHandler(base, cfg.Ledger.Reports)
	reportsGroup := v1.Group("/reports")
	{
		reportsGroup.GET("/dashboard", reportHandler.Dashboard)
	}

	return router
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, l *ledger.Ledger) {
	saleHandler := handlers.NewSaleHandler(base, l.Sales, l.Returns)
	returnHandler := handlers.NewReturnHandler(base, l.Sales, l.Returns)

	sales := rg.Group("/sales")
	{
		sales.POST("", saleHandler.Create)
		sales.GET("", saleHandler.List)
		sales.GET("/:id", saleHandler.Get)
		sales.PUT("/:id", saleHandler.Update)
		sales.DELETE("/:id", saleHandler.Delete)
		sales.POST("/:id/cancel", saleHandler.Cancel)

		sales.POST("/:id/returns", returnHandler.Register)
		sales.GET("/:id/returns", returnHandler.List)
	}

	rg.POST("/returns/lines/:id/restore", returnHandler.Restore)
}

func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, l *ledger.Ledger) {
	h := handlers.NewProductHandler(base, l.Products, l.Catalog, l.Lots)

	products := rg.Group("/products")
	{
		products.POST("", h.Create)
		products.GET("", h.List)
		products.GET("/:id", h.Get)
		products.PUT("/:id", h.Update)
		products.DELETE("/:id", h.Delete)
		products.GET("/:id/stock", h.Stock)
		products.POST("/:id/lots", h.ReceiveLot)
	}

	rg.POST("/lots/batch", h.ReceiveBatch)
}
