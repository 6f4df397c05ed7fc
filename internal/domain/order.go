package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID                string
	BuyerID           string
	BuyerEmail        string
	ProductID         string
	SubProductID      *string
	AccountInfo       []AccountInfoEntry
	BaseAmount        decimal.Decimal
	Discount          *OrderDiscount
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	PaymentMethod     PaymentMethod
	Evidence          *PaymentEvidence
	CheckoutSessionID string
	PaymentReference  string
	AdminNote         string
	RefundAmount      *decimal.Decimal
	RefundDate        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type AccountInfoEntry struct {
	Field string `json:"fieldName"`
	Value string `json:"value"`
}

// OrderDiscount records the coupon effect computed at creation against the
// same catalog snapshot as BaseAmount.
type OrderDiscount struct {
	CouponCode string          `json:"couponCode"`
	Type       CouponType      `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentEvidence holds customer-submitted proof for manual transfers. The
// transfer number and handle are ciphertext; the masked previews are captured
// at submission so buyer views never need the key.
type PaymentEvidence struct {
	TransferNumberEnc    string
	InstaHandleEnc       string
	TransferNumberMasked string
	InstaHandleMasked    string
	ImageURL             string
	ImagePublicID        string
	SubmittedAt          time.Time
}

func (o Order) IsRefunded() bool {
	return o.RefundAmount != nil
}

// OrderPatch lists the fields a conditional update may write. Nil fields are
// left untouched.
type OrderPatch struct {
	Status            *OrderStatus
	AdminNote         *string
	RefundAmount      *decimal.Decimal
	RefundDate        *time.Time
	Evidence          *PaymentEvidence
	CheckoutSessionID *string
	PaymentReference  *string
}

func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.AdminNote == nil && p.RefundAmount == nil && p.RefundDate == nil &&
		p.Evidence == nil && p.CheckoutSessionID == nil && p.PaymentReference == nil
}

// Apply writes the patch onto a copy of the order and stamps UpdatedAt.
func (p OrderPatch) Apply(o Order, now time.Time) Order {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.AdminNote != nil {
		o.AdminNote = *p.AdminNote
	}
	if p.RefundAmount != nil {
		amount := *p.RefundAmount
		o.RefundAmount = &amount
	}
	if p.RefundDate != nil {
		date := *p.RefundDate
		o.RefundDate = &date
	}
	if p.Evidence != nil {
		evidence := *p.Evidence
		o.Evidence = &evidence
	}
	if p.CheckoutSessionID != nil {
		o.CheckoutSessionID = *p.CheckoutSessionID
	}
	if p.PaymentReference != nil {
		o.PaymentReference = *p.PaymentReference
	}
	o.UpdatedAt = now
	return o
}
