package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"golang.org/x/text/currency"

	apperrors "storefront/internal/errors"
)

type checkoutSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
	// SuccessURL and CancelURL may contain {ORDER_ID}, replaced per session.
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration

	sessions checkoutSessionAPI
}

type StripeGateway struct {
	sessions      checkoutSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	timeout       time.Duration
	newAttemptID  func() string
}

func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" && cfg.sessions == nil {
		return nil, errors.New("stripe: secret key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sessions := cfg.sessions
	if sessions == nil {
		backends := stripe.NewBackends(&http.Client{Timeout: timeout})
		sessions = client.New(secretKey, backends).CheckoutSessions
	}

	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		timeout:       timeout,
		newAttemptID:  func() string { return ulid.Make().String() },
	}, nil
}

// CreateCheckoutSession opens a hosted payment page for a single line item.
// Timeouts, rate limits and Stripe 5xx answers come back as retryable
// GatewayErrors. The idempotency key is unique per call: the client's own
// network retries share it, a later call always gets a fresh session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	unit, err := currency.ParseISO(req.Currency)
	if err != nil {
		return CheckoutSession{}, apperrors.NewGatewayError("create checkout session", false, fmt.Errorf("currency %q: %w", req.Currency, err))
	}
	if req.AmountMinorUnits <= 0 {
		return CheckoutSession{}, apperrors.NewGatewayError("create checkout session", false, fmt.Errorf("amount must be positive, got %d", req.AmountMinorUnits))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[MetadataOrderID] = req.OrderID

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withOrderID(g.successURL, req.OrderID)),
		CancelURL:         stripe.String(withOrderID(g.cancelURL, req.OrderID)),
		ClientReferenceID: stripe.String(req.OrderID),
		Metadata:          metadata,
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(unit.String())),
				UnitAmount: stripe.Int64(req.AmountMinorUnits),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("checkout-%s-%s", req.OrderID, g.newAttemptID()))
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, apperrors.NewGatewayError("create checkout session", isRetryable(err), err)
	}

	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func withOrderID(url, orderID string) string {
	return strings.ReplaceAll(url, "{ORDER_ID}", orderID)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.Type == stripe.ErrorTypeAPI
	}

	return false
}
