package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	apperrors "storefront/internal/errors"
)

const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	eventCheckoutExpired       = "checkout.session.expired"
	eventChargeDisputeCreated  = "charge.dispute.created"
)

// ParseWebhook verifies the Stripe-Signature header before decoding the
// payload. Signature failures are never retryable.
func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, apperrors.NewGatewayError("verify webhook", false, err)
	}

	parsed := WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Action:  WebhookActionIgnore,
	}
	if event.Data == nil {
		return parsed, nil
	}

	switch parsed.Type {
	case eventCheckoutCompleted, eventAsyncPaymentSucceeded, eventAsyncPaymentFailed, eventCheckoutExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return WebhookEvent{}, apperrors.NewGatewayError("decode webhook", false, fmt.Errorf("checkout session: %w", err))
		}

		parsed.SessionID = session.ID
		parsed.OrderID = session.Metadata[MetadataOrderID]
		if parsed.OrderID == "" {
			parsed.OrderID = session.ClientReferenceID
		}
		parsed.AmountMinorUnits = session.AmountTotal
		if session.PaymentIntent != nil {
			parsed.PaymentReference = session.PaymentIntent.ID
		}
		parsed.Action = sessionAction(parsed.Type, session.PaymentStatus)

	case eventChargeDisputeCreated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return WebhookEvent{}, apperrors.NewGatewayError("decode webhook", false, fmt.Errorf("dispute: %w", err))
		}

		parsed.OrderID = dispute.Metadata[MetadataOrderID]
		parsed.AmountMinorUnits = dispute.Amount
		if dispute.PaymentIntent != nil {
			parsed.PaymentReference = dispute.PaymentIntent.ID
		}
		parsed.Action = WebhookActionEscalate
	}

	return parsed, nil
}

func sessionAction(eventType string, paymentStatus stripe.CheckoutSessionPaymentStatus) WebhookAction {
	switch eventType {
	case eventCheckoutCompleted:
		// Delayed methods complete unpaid and settle through the async events.
		if paymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			return WebhookActionMarkPaid
		}
		return WebhookActionIgnore
	case eventAsyncPaymentSucceeded:
		return WebhookActionMarkPaid
	case eventAsyncPaymentFailed, eventCheckoutExpired:
		return WebhookActionEscalate
	}
	return WebhookActionIgnore
}
