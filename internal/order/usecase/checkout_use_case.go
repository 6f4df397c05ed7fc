package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/payment"
	"storefront/internal/pricing"
)

type CheckoutResult struct {
	Order     *domain.Order
	SessionID string
	URL       string
}

type CheckoutUseCase struct {
	repo     OrderRepository
	gateway  CheckoutGateway
	currency string
	logger   *zap.Logger
}

func NewCheckoutUseCase(repo OrderRepository, gateway CheckoutGateway, currency string, logger *zap.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{
		repo:     repo,
		gateway:  gateway,
		currency: currency,
		logger:   logger,
	}
}

// CreateCheckoutSession opens a new hosted checkout for a pending card order
// owned by buyerID. Every call asks the gateway for a fresh session and the
// stored session id is replaced with it.
func (uc *CheckoutUseCase) CreateCheckoutSession(ctx context.Context, orderID, buyerID string) (*CheckoutResult, error) {
	order, err := uc.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
	}

	if order.PaymentMethod != domain.PaymentMethodCard {
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is not paid by card", orderID))
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is %s, checkout requires pending", orderID, order.Status))
	}

	return uc.start(ctx, *order)
}

func (uc *CheckoutUseCase) start(ctx context.Context, order domain.Order) (*CheckoutResult, error) {
	logger := uc.logger.With(zap.String("orderId", order.ID))

	session, err := uc.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID:          order.ID,
		BuyerEmail:       order.BuyerEmail,
		Description:      fmt.Sprintf("Order %s", order.ID),
		Currency:         uc.currency,
		AmountMinorUnits: pricing.ToMinorUnits(order.TotalAmount),
		Metadata:         map[string]string{payment.MetadataOrderID: order.ID},
	})
	if err != nil {
		return nil, err
	}

	updated, err := uc.repo.UpdateConditional(ctx, order.ID, domain.OrderStatusPending, domain.OrderPatch{
		CheckoutSessionID: &session.ID,
	})
	if errors.Is(err, apperrors.ErrStatusMismatch) {
		logger.Warn("order left pending while opening checkout", zap.String("sessionId", session.ID))
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is no longer pending", order.ID))
	}
	if err != nil {
		return nil, err
	}

	logger.Info("checkout session created", zap.String("sessionId", session.ID))
	return &CheckoutResult{Order: updated, SessionID: session.ID, URL: session.URL}, nil
}
