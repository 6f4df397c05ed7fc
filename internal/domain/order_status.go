package domain

import "errors"

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:   {},
	OrderStatusPaid:      {},
	OrderStatusDelivered: {},
	OrderStatusRejected:  {},
}

var ErrInvalidOrderStatus = errors.New("invalid order status")

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", ErrInvalidOrderStatus
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusRejected
}

type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodWallet        PaymentMethod = "wallet-transfer"
	PaymentMethodInstaTransfer PaymentMethod = "insta-transfer"
	PaymentMethodFawryTransfer PaymentMethod = "fawry-transfer"
)

var validPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCard:          {},
	PaymentMethodCash:          {},
	PaymentMethodWallet:        {},
	PaymentMethodInstaTransfer: {},
	PaymentMethodFawryTransfer: {},
}

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

func ToPaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if _, ok := validPaymentMethods[method]; ok {
		return method, nil
	}
	return "", ErrInvalidPaymentMethod
}

// IsManualTransfer reports whether payment is confirmed by customer evidence
// reviewed by an admin.
func (m PaymentMethod) IsManualTransfer() bool {
	switch m {
	case PaymentMethodWallet, PaymentMethodInstaTransfer, PaymentMethodFawryTransfer:
		return true
	}
	return false
}
