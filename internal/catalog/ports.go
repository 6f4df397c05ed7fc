package catalog

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/dto"
	"storefront/internal/pricing"
)

type QuoteUseCase interface {
	Quote(ctx context.Context, req dto.QuoteRequest) (*pricing.Quote, error)
}

type Repository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error)
}

type CouponReader interface {
	GetCoupon(ctx context.Context, code string) (*domain.Coupon, error)
}

type Pricer interface {
	ComputeTotal(product domain.Product, subProduct *domain.SubProduct, coupon *domain.Coupon) (pricing.Quote, error)
}
