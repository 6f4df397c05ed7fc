package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	gcs "cloud.google.com/go/storage"

	"storefront/internal/catalog"
	catalogrepo "storefront/internal/catalog/repository"
	"storefront/internal/commons"
	couponrepo "storefront/internal/coupon/repository"
	"storefront/internal/encryption"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/infrastructure/objectstore"
	"storefront/internal/order"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := commons.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	orders, err := order.NewRepository(ctx, cfg, db, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating order store", zap.Error(err))
	}

	cipher, err := encryption.NewFromBase64(cfg.Encryption.Key)
	if err != nil {
		zapLogger.Fatal("creating encryption service", zap.Error(err))
	}

	storageClient, err := gcs.NewClient(ctx)
	if err != nil {
		zapLogger.Fatal("creating storage client", zap.Error(err))
	}
	defer storageClient.Close()

	uploader, err := objectstore.NewGCSUploader(storageClient, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		zapLogger.Fatal("creating evidence uploader", zap.Error(err))
	}

	gateway, err := payment.NewStripeGateway(payment.StripeGatewayConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		Timeout:       cfg.Stripe.Timeout,
	})
	if err != nil {
		zapLogger.Fatal("creating payment gateway", zap.Error(err))
	}

	products := catalogrepo.NewMySQLRepository(db)
	coupons := couponrepo.NewMySQLCouponRepository(db)
	prices := pricing.NewEngine()

	catalogCtrl := catalog.NewModule(products, coupons, prices, zapLogger)
	orderModule := order.NewModule(order.Dependencies{
		Orders:  orders,
		Catalog: products,
		Coupons: coupons,
		Prices:  prices,
		Gateway: gateway,
		Storage: uploader,
		Cipher:  cipher,
	}, cfg, zapLogger)

	router := server.NewRouter(catalogCtrl, orderModule, cfg.Admin.Token, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	if err := srv.Shutdown(context.Background()); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
