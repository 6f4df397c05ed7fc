package usecase

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/service"
	"storefront/internal/payment"
	"storefront/internal/pricing"
)

// WebhookResult reports what a delivery did. Action is the outcome actually
// taken, which may be an escalation even when the event asked to mark paid.
type WebhookResult struct {
	EventID string
	Action  payment.WebhookAction
	OrderID string
	Applied bool
}

type WebhookUseCase struct {
	parser       WebhookParser
	repo         OrderRepository
	stateMachine StateMachine
	logger       *zap.Logger
}

func NewWebhookUseCase(parser WebhookParser, repo OrderRepository, stateMachine StateMachine, logger *zap.Logger) *WebhookUseCase {
	return &WebhookUseCase{
		parser:       parser,
		repo:         repo,
		stateMachine: stateMachine,
		logger:       logger,
	}
}

// HandleWebhook verifies and reconciles one gateway delivery. Deliveries are
// at least once, so re-confirming a paid order succeeds without applying.
// Only signature failures and storage errors are returned.
func (uc *WebhookUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := uc.parser.ParseWebhook(payload, signature)
	if err != nil {
		uc.logger.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}

	logger := uc.logger.With(
		zap.String("eventId", event.EventID),
		zap.String("eventType", event.Type),
		zap.String("orderId", event.OrderID),
	)
	result := &WebhookResult{EventID: event.EventID, Action: event.Action, OrderID: event.OrderID}

	switch event.Action {
	case payment.WebhookActionMarkPaid:
	case payment.WebhookActionEscalate:
		logger.Warn("webhook event needs operator follow-up", zap.String("sessionId", event.SessionID))
		return result, nil
	default:
		logger.Debug("webhook event ignored")
		result.Action = payment.WebhookActionIgnore
		return result, nil
	}

	order, err := uc.resolveOrder(ctx, event)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			logger.Warn("paid session does not match any order", zap.String("sessionId", event.SessionID))
			return uc.escalate(result), nil
		}
		return nil, err
	}
	result.OrderID = order.ID
	logger = logger.With(zap.String("orderId", order.ID))

	if order.PaymentMethod != domain.PaymentMethodCard {
		logger.Warn("card payment received for non-card order", zap.String("paymentMethod", string(order.PaymentMethod)))
		return uc.escalate(result), nil
	}
	if expected := pricing.ToMinorUnits(order.TotalAmount); event.AmountMinorUnits != expected {
		logger.Warn("paid amount does not match order total",
			zap.Int64("paid", event.AmountMinorUnits),
			zap.Int64("expected", expected),
		)
		return uc.escalate(result), nil
	}
	if order.Status == domain.OrderStatusDelivered {
		logger.Debug("order already delivered, payment acknowledged")
		return result, nil
	}

	reference := event.PaymentReference
	outcome, err := uc.stateMachine.Apply(ctx, service.TransitionRequest{
		OrderID:          order.ID,
		Target:           domain.OrderStatusPaid,
		PaymentReference: &reference,
		Source:           service.SourceWebhook,
	})
	if ite, ok := apperrors.IsInvalidTransitionError(err); ok {
		// Rejected or delivered in the meantime; the payment itself is settled.
		logger.Warn("payment arrived for order that moved on", zap.String("status", ite.From))
		return result, nil
	}
	if err != nil {
		logger.Error("marking order paid failed", zap.Error(err))
		return nil, err
	}

	result.Applied = outcome.Applied
	if outcome.Applied {
		logger.Info("order marked paid from webhook")
	} else {
		logger.Debug("duplicate payment confirmation")
	}
	return result, nil
}

func (uc *WebhookUseCase) resolveOrder(ctx context.Context, event payment.WebhookEvent) (*domain.Order, error) {
	if event.OrderID != "" {
		return uc.repo.FindByID(ctx, event.OrderID)
	}
	if event.SessionID != "" {
		return uc.repo.FindByCheckoutSession(ctx, event.SessionID)
	}
	return nil, apperrors.NewNotFoundError("webhook event carries no order reference")
}

func (uc *WebhookUseCase) escalate(result *WebhookResult) *WebhookResult {
	result.Action = payment.WebhookActionEscalate
	return result
}
