package order

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/infrastructure/dynamo"
	"storefront/internal/order/controller"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
	"storefront/internal/order/validator"
	"storefront/internal/pricing"
)

// Gateway is the payment provider: hosted checkout plus webhook verification.
type Gateway interface {
	usecase.CheckoutGateway
	usecase.WebhookParser
}

type Cipher interface {
	service.Encryptor
	usecase.Cipher
}

type Dependencies struct {
	Orders  usecase.OrderRepository
	Catalog usecase.CatalogReader
	Coupons usecase.CouponStore
	Prices  *pricing.Engine
	Gateway Gateway
	Storage service.ObjectStorage
	Cipher  Cipher
}

type Module struct {
	Orders   *controller.OrderController
	Admin    *controller.AdminController
	Webhooks *controller.WebhookController
}

// NewRepository picks the order store named by database.driver. Catalog and
// coupons always read from MySQL.
func NewRepository(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (usecase.OrderRepository, error) {
	switch cfg.Database.Driver {
	case config.DriverDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		logger.Info("order store: dynamodb", zap.String("table", cfg.Dynamo.OrdersTable))
		return orderrepo.NewDynamoOrderRepository(client, cfg.Dynamo.OrdersTable), nil
	case config.DriverMySQL, "":
		logger.Info("order store: mysql")
		return orderrepo.NewMySQLOrderRepository(db, logger, cfg.Order.MaxRetryAttempts), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func NewModule(deps Dependencies, cfg *config.Config, logger *zap.Logger) *Module {
	stateMachine := service.NewStateMachine(deps.Orders, logger, cfg.Order.MaxTransitionAttempts)
	transfers := service.NewTransferService(
		deps.Orders,
		deps.Storage,
		deps.Cipher,
		logger,
		cfg.Storage.Folder,
		cfg.Storage.MaxUploadBytes,
	)

	checkout := usecase.NewCheckoutUseCase(deps.Orders, deps.Gateway, cfg.Stripe.Currency, logger)
	placeOrder := usecase.NewPlaceOrderUseCase(
		deps.Catalog,
		deps.Coupons,
		validator.New(deps.Catalog, deps.Prices),
		deps.Prices,
		deps.Orders,
		checkout,
		logger,
	)

	return &Module{
		Orders: controller.NewOrderController(
			placeOrder,
			checkout,
			usecase.NewCustomerOrdersUseCase(deps.Orders),
			transfers,
			cfg.Storage.MaxUploadBytes,
			logger,
		),
		Admin: controller.NewAdminController(
			usecase.NewAdminOrdersUseCase(deps.Orders, stateMachine, deps.Cipher, logger),
			logger,
		),
		Webhooks: controller.NewWebhookController(
			usecase.NewWebhookUseCase(deps.Gateway, deps.Orders, stateMachine, logger),
			logger,
		),
	}
}
