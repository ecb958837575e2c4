package main

import (
	"context"
	"log"

	"order-adapter/internal/core/config"
	"order-adapter/internal/core/logger"
	"order-adapter/internal/core/server"
	orderadapter "order-adapter/internal/features/orders/adapters"
	orderhandler "order-adapter/internal/features/orders/handler"
	orderservice "order-adapter/internal/features/orders/service"

	"go.uber.org/zap"
)

// @title Order Adapter API
// @version 1.0
// @description Proxies order lookup, payment-slip upload, payment confirmation and cancellation to the Shopify Admin API.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("status_source", cfg.Policy.StatusSource),
		zap.String("slip_storage", cfg.Policy.SlipStorage),
	)

	// Initialize Shopify adapter and verify credentials before serving.
	shopifyAdapter := orderadapter.NewShopifyAdapter(cfg.Shopify)
	if err := shopifyAdapter.HealthCheck(context.Background()); err != nil {
		l.Fatal("Shopify Health Check Failed", zap.Error(err))
	}
	l.Info("Shopify connection verified", zap.String("domain", cfg.Shopify.Domain))

	// Initialize Order Service & Handler
	orderSvc := orderservice.NewOrderService(shopifyAdapter, cfg.Policy, cfg.Upload)
	orderHdl := orderhandler.NewOrderHandler(orderSvc)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/api/order/:orderNumber", orderHdl.GetOrder)
	srv.App.Post("/api/order/:orderNumber/upload-payment", orderHdl.UploadPaymentSlip)
	srv.App.Post("/api/order/:orderNumber/confirm-payment", orderHdl.ConfirmPayment)
	srv.App.Post("/api/order/:orderNumber/cancel", orderHdl.CancelOrder)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
