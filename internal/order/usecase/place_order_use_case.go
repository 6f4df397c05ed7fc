package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type PlaceOrderRequest struct {
	BuyerID       string
	BuyerEmail    string
	ProductID     string
	SubProductID  *string
	AccountInfo   []domain.AccountInfoEntry
	CouponCode    string
	PaymentMethod domain.PaymentMethod
}

// PlaceOrderResult carries the created order. CheckoutURL is empty for
// non-card methods and when the gateway could not open a session.
type PlaceOrderResult struct {
	Order       *domain.Order
	CheckoutURL string
}

type PlaceOrderUseCase struct {
	catalog   CatalogReader
	coupons   CouponStore
	validator OrderValidator
	pricer    PricingEngine
	repo      OrderRepository
	checkout  *CheckoutUseCase
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewPlaceOrderUseCase(
	catalog CatalogReader,
	coupons CouponStore,
	validator OrderValidator,
	pricer PricingEngine,
	repo OrderRepository,
	checkout *CheckoutUseCase,
	logger *zap.Logger,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		catalog:   catalog,
		coupons:   coupons,
		validator: validator,
		pricer:    pricer,
		repo:      repo,
		checkout:  checkout,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	logger := uc.logger.With(
		zap.String("productId", req.ProductID),
		zap.String("paymentMethod", string(req.PaymentMethod)),
	)
	logger.Info("place order started")

	product, err := uc.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.NewValidationError("order validation failed", apperrors.ValidationDetail{
			Field:   "productId",
			Message: fmt.Sprintf("product %s does not exist", req.ProductID),
		})
	}

	subProduct, err := uc.validator.Validate(ctx, *product, req.AccountInfo, req.SubProductID)
	if err != nil {
		return nil, err
	}

	var coupon *domain.Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err = uc.coupons.GetCoupon(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := uc.validator.ValidateCoupon(code, coupon); err != nil {
			return nil, err
		}
	}

	quote, err := uc.pricer.ComputeTotal(*product, subProduct, coupon)
	if err != nil {
		logger.Error("pricing failed", zap.Error(err))
		return nil, err
	}

	now := uc.now().UTC()
	order := domain.Order{
		ID:            uc.newID(),
		BuyerID:       req.BuyerID,
		BuyerEmail:    req.BuyerEmail,
		ProductID:     product.ID,
		AccountInfo:   req.AccountInfo,
		BaseAmount:    quote.Base,
		TotalAmount:   quote.Total,
		Status:        domain.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if subProduct != nil {
		id := subProduct.ID
		order.SubProductID = &id
	}
	if quote.CouponApplied {
		order.Discount = &domain.OrderDiscount{
			CouponCode: quote.CouponCode,
			Type:       quote.CouponType,
			Amount:     quote.Discount,
		}
	}

	// The use is taken before the order exists so concurrent orders cannot
	// push a coupon past its usage limit.
	if quote.CouponApplied {
		if err := uc.coupons.Redeem(ctx, quote.CouponCode); err != nil {
			if _, ok := apperrors.IsConflictError(err); ok {
				return nil, apperrors.NewValidationError("order validation failed", apperrors.ValidationDetail{
					Field:   "couponCode",
					Message: fmt.Sprintf("coupon %s can no longer be redeemed", quote.CouponCode),
				})
			}
			return nil, err
		}
	}

	created, err := uc.repo.Create(ctx, order)
	if err != nil {
		if quote.CouponApplied {
			if relErr := uc.coupons.Release(context.WithoutCancel(ctx), quote.CouponCode); relErr != nil {
				logger.Error("coupon release failed", zap.String("couponCode", quote.CouponCode), zap.Error(relErr))
			}
		}
		return nil, err
	}
	logger = logger.With(zap.String("orderId", created.ID))
	logger.Info("order created", zap.String("total", created.TotalAmount.StringFixed(2)))

	result := &PlaceOrderResult{Order: created}
	if created.PaymentMethod != domain.PaymentMethodCard {
		return result, nil
	}

	checkout, err := uc.checkout.start(ctx, *created)
	if err != nil {
		// The order stays pending; the buyer can retry checkout later.
		logger.Warn("checkout session not created", zap.Error(err))
		return result, nil
	}
	result.Order = checkout.Order
	result.CheckoutURL = checkout.URL
	return result, nil
}
