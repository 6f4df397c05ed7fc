package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountDTO struct {
	CouponCode string          `json:"couponCode"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
}

type EvidenceDTO struct {
	TransferNumber string    `json:"transferNumber"`
	InstaHandle    string    `json:"instaHandle,omitempty"`
	ImageURL       string    `json:"imageUrl"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// OrderDTO is shared by customer and admin views. Evidence values are masked
// for customers and decrypted for admins.
type OrderDTO struct {
	ID               string                `json:"id"`
	BuyerID          string                `json:"buyerId"`
	ProductID        string                `json:"productId"`
	SubProductID     *string               `json:"subProductId,omitempty"`
	AccountInfo      []AccountInfoEntryDTO `json:"accountInfo"`
	BaseAmount       decimal.Decimal       `json:"baseAmount"`
	Discount         *DiscountDTO          `json:"discount,omitempty"`
	TotalAmount      decimal.Decimal       `json:"totalAmount"`
	Status           string                `json:"status"`
	PaymentMethod    string                `json:"paymentMethod"`
	Evidence         *EvidenceDTO          `json:"evidence,omitempty"`
	PaymentReference string                `json:"paymentReference,omitempty"`
	AdminNote        string                `json:"adminNote,omitempty"`
	RefundAmount     *decimal.Decimal      `json:"refundAmount,omitempty"`
	RefundDate       *time.Time            `json:"refundDate,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

type OrderResponse struct {
	TraceID     string   `json:"traceId"`
	Order       OrderDTO `json:"order"`
	CheckoutURL string   `json:"checkoutUrl,omitempty"`
}

type OrderListResponse struct {
	TraceID  string     `json:"traceId"`
	Items    []OrderDTO `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

type CheckoutResponse struct {
	TraceID     string `json:"traceId"`
	OrderID     string `json:"orderId"`
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type TransferResponse struct {
	TraceID              string    `json:"traceId"`
	OrderID              string    `json:"orderId"`
	MaskedTransferNumber string    `json:"maskedTransferNumber"`
	MaskedInstaHandle    string    `json:"maskedInstaHandle,omitempty"`
	ImageURL             string    `json:"imageUrl"`
	SubmittedAt          time.Time `json:"submittedAt"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"eventId,omitempty"`
	Action   string `json:"action,omitempty"`
	Applied  bool   `json:"applied"`
}

type QuoteResponse struct {
	TraceID       string          `json:"traceId"`
	ProductID     string          `json:"productId"`
	SubProductID  *string         `json:"subProductId,omitempty"`
	BaseAmount    decimal.Decimal `json:"baseAmount"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CouponApplied bool            `json:"couponApplied"`
	CouponCode    string          `json:"couponCode,omitempty"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
