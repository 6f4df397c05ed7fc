package catalog

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/pricing"
)

type quoteUseCase struct {
	repo    Repository
	coupons CouponReader
	pricer  Pricer
}

func NewQuoteUseCase(repo Repository, coupons CouponReader, pricer Pricer) QuoteUseCase {
	return &quoteUseCase{repo: repo, coupons: coupons, pricer: pricer}
}

// Quote previews the price an order would be created with. Nothing is
// persisted and coupons are not redeemed.
func (uc *quoteUseCase) Quote(ctx context.Context, req dto.QuoteRequest) (*pricing.Quote, error) {
	product, err := uc.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsAvailable() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", req.ProductID))
	}

	var sub *domain.SubProduct
	if product.Type == domain.ProductTypePackage && req.SubProductID != nil {
		sub, err = uc.repo.GetSubProduct(ctx, *req.SubProductID)
		if err != nil {
			return nil, err
		}
		if sub == nil || sub.ProductID != product.ID || !sub.IsAvailable() {
			return nil, apperrors.NewValidationError("quote validation failed", apperrors.ValidationDetail{
				Field:   "subProductId",
				Message: "package does not belong to this product",
			})
		}
	}

	var coupon *domain.Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		if coupon, err = uc.coupons.GetCoupon(ctx, code); err != nil {
			return nil, err
		}
	}

	quote, err := uc.pricer.ComputeTotal(*product, sub, coupon)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
