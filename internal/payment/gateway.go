package payment

// MetadataOrderID is the metadata key carrying the order id on checkout
// sessions and their payment intents.
const MetadataOrderID = "orderId"

type CheckoutRequest struct {
	OrderID          string
	BuyerEmail       string
	Description      string
	Currency         string
	AmountMinorUnits int64
	Metadata         map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookAction is the reconciliation outcome a verified event asks for.
type WebhookAction string

const (
	// WebhookActionMarkPaid moves a pending card order to paid.
	WebhookActionMarkPaid WebhookAction = "mark-paid"
	// WebhookActionEscalate needs operator follow-up and never mutates state.
	WebhookActionEscalate WebhookAction = "escalate"
	// WebhookActionIgnore is acknowledged without side effects.
	WebhookActionIgnore WebhookAction = "ignore"
)

type WebhookEvent struct {
	EventID          string
	Type             string
	Action           WebhookAction
	OrderID          string
	SessionID        string
	PaymentReference string
	AmountMinorUnits int64
}
