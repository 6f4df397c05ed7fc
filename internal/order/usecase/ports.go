package usecase

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/order/service"
	"storefront/internal/payment"
	"storefront/internal/pricing"
)

type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error)
	UpdateConditional(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error)
	FindMany(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error)
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error)
}

type CouponStore interface {
	GetCoupon(ctx context.Context, code string) (*domain.Coupon, error)
	Redeem(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

type OrderValidator interface {
	Validate(ctx context.Context, product domain.Product, accountInfo []domain.AccountInfoEntry, subProductID *string) (*domain.SubProduct, error)
	ValidateCoupon(code string, coupon *domain.Coupon) error
}

type PricingEngine interface {
	ComputeTotal(product domain.Product, subProduct *domain.SubProduct, coupon *domain.Coupon) (pricing.Quote, error)
}

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (payment.WebhookEvent, error)
}

type StateMachine interface {
	Apply(ctx context.Context, req service.TransitionRequest) (service.TransitionOutcome, error)
	Transition(ctx context.Context, req service.TransitionRequest) (*domain.Order, error)
	UpdateAdminNote(ctx context.Context, orderID, note string) (*domain.Order, error)
}

type Cipher interface {
	Decrypt(ciphertext string) (string, error)
	Mask(plaintext string, visibleTail int) string
}
