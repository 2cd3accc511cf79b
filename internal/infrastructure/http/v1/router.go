// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"salesflow/internal/domain/customers"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/domain/invoices"
	"salesflow/internal/domain/orders"
	"salesflow/internal/domain/payments"
	"salesflow/internal/domain/returns"
	"salesflow/internal/domain/transfers"
	"salesflow/internal/infrastructure/http/v1/handlers"
	"salesflow/internal/infrastructure/http/v1/middleware"
	"salesflow/internal/infrastructure/storage/postgres"
	"salesflow/internal/infrastructure/storage/postgres/catalog_repo"
	"salesflow/internal/infrastructure/storage/postgres/document_repo"
	"salesflow/internal/infrastructure/storage/postgres/register_repo"
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager propagates transactions through context
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuditEnabled turns on the sys_audit trail for posting transitions
	AuditEnabled bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Document numbers are allocated through the ambient transaction so
	// strict sequences stay gapless.
	numbers := numerator.New(postgres.NewSequenceQuerier(cfg.TxManager))

	var audit *postgres.AuditService
	if cfg.AuditEnabled {
		var err error
		audit, err = postgres.NewAuditService(cfg.TxManager)
		if err != nil {
			return nil, err
		}
	}

	// Repositories
	inventoryRepo := register_repo.NewInventoryRepo(cfg.TxManager)
	customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
	orderRepo := document_repo.NewOrderRepo(cfg.TxManager)
	invoiceRepo := document_repo.NewInvoiceRepo(cfg.TxManager)
	paymentRepo := document_repo.NewPaymentRepo(cfg.TxManager)
	transferRepo := document_repo.NewTransferRepo(cfg.TxManager)
	returnRepo := document_repo.NewReturnRepo(cfg.TxManager)

	// Services
	inventorySvc := inventory.NewService(inventoryRepo, cfg.TxManager)
	customerSvc := customers.NewService(customerRepo, invoiceRepo, cfg.TxManager)
	orderSvc := orders.NewService(orderRepo, inventorySvc, numbers, cfg.TxManager)
	invoiceSvc := invoices.NewService(invoiceRepo, orderSvc, inventorySvc, customerSvc, numbers, cfg.TxManager)
	paymentSvc := payments.NewService(paymentRepo, invoiceRepo, orderSvc, customerSvc, numbers, cfg.TxManager)
	transferSvc := transfers.NewService(transferRepo, inventorySvc, numbers, cfg.TxManager)
	returnSvc := returns.NewService(returnRepo, inventorySvc, numbers, cfg.TxManager)

	baseHandler := handlers.NewBaseHandler()

	// API v1, all endpoints behind bearer auth
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		// --- CUSTOMERS ---
		{
			handler := handlers.NewCustomerHandler(baseHandler, customerSvc)
			g := api.Group("/customers")
			g.POST("", handler.Create)
			g.GET("", handler.List)
			g.GET("/:id", handler.Get)
			g.POST("/:id/reconcile", handler.Reconcile)
		}

		// --- INVENTORY ---
		{
			handler := handlers.NewInventoryHandler(baseHandler, inventorySvc)
			g := api.Group("/inventory")
			g.POST("/receipts", handler.Receive)
			g.GET("/lots/:id", handler.GetLot)
			g.POST("/lots/:id/verify", handler.VerifyLot)
			g.GET("/hubs/:hubId/stock", handler.HubStock)
			g.GET("/products/:productId/availability", handler.Availability)
			g.GET("/products/:productId/movements", handler.Movements)
		}

		// --- ORDERS ---
		{
			handler := handlers.NewOrderHandler(baseHandler, orderSvc, audit)
			g := api.Group("/orders")
			g.POST("", handler.Create)
			g.GET("", handler.List)
			g.GET("/:id", handler.Get)
			g.PUT("/:id/items", handler.UpdateItems)
			g.POST("/:id/submit", handler.Submit)
			g.POST("/:id/confirm", handler.Confirm)
			g.POST("/:id/cancel", handler.Cancel)
		}

		// --- INVOICES ---
		{
			handler := handlers.NewInvoiceHandler(baseHandler, invoiceSvc, audit)
			g := api.Group("/invoices")
			g.POST("", handler.Issue)
			g.GET("", handler.List)
			g.GET("/:id", handler.Get)
			g.GET("/by-order/:orderId", handler.GetByOrder)
			g.POST("/mark-overdue", middleware.RequireRole("back_office"), handler.MarkOverdue)
		}

		// --- PAYMENTS ---
		{
			handler := handlers.NewPaymentHandler(baseHandler, paymentSvc, audit)
			g := api.Group("/payments")
			g.POST("", handler.Record)
			g.GET("/:id", handler.Get)
			g.GET("/by-invoice/:invoiceId", handler.ListByInvoice)
			g.GET("/by-customer/:customerId", handler.ListByCustomer)
		}

		// --- TRANSFERS ---
		{
			handler := handlers.NewTransferHandler(baseHandler, transferSvc, audit)
			g := api.Group("/transfers")
			g.POST("", handler.Create)
			g.GET("", handler.List)
			g.GET("/:id", handler.Get)
			g.POST("/:id/approve", handler.Approve)
			g.POST("/:id/dispatch", handler.Dispatch)
			g.POST("/:id/receive", handler.Receive)
			g.POST("/:id/cancel", handler.Cancel)
		}

		// --- RETURNS ---
		{
			handler := handlers.NewReturnHandler(baseHandler, returnSvc, audit)
			g := api.Group("/returns")
			g.POST("", handler.Create)
			g.GET("", handler.List)
			g.GET("/:id", handler.Get)
			g.POST("/:id/approve", handler.Approve)
			g.POST("/:id/reject", handler.Reject)
			g.POST("/:id/process", handler.Process)
		}
	}

	return router, nil
}
