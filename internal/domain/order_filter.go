package domain

import "fmt"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// OrderFilter has AND semantics across fields. Empty fields match everything.
type OrderFilter struct {
	Status        *OrderStatus
	PaymentMethod *PaymentMethod
	BuyerID       string
}

func (f OrderFilter) Validate() error {
	if f.Status != nil {
		if _, err := ToOrderStatus(string(*f.Status)); err != nil {
			return fmt.Errorf("status: %w", err)
		}
	}
	if f.PaymentMethod != nil {
		if _, err := ToPaymentMethod(string(*f.PaymentMethod)); err != nil {
			return fmt.Errorf("paymentMethod: %w", err)
		}
	}
	return nil
}

func (f OrderFilter) Matches(o Order) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.PaymentMethod != nil && o.PaymentMethod != *f.PaymentMethod {
		return false
	}
	if f.BuyerID != "" && o.BuyerID != f.BuyerID {
		return false
	}
	return true
}

type Page struct {
	Number int
	Size   int
}

// Normalize applies defaults and caps the page size.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type OrderPage struct {
	Items    []Order
	Total    int
	Page     int
	PageSize int
}
