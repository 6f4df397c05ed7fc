package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeDirect  ProductType = "direct"
	ProductTypePackage ProductType = "package"
)

type Product struct {
	ID                string
	Name              string
	Type              ProductType
	Price             *decimal.Decimal
	IsOffer           bool
	FinalPrice        *decimal.Decimal
	AccountInfoFields []AccountInfoField
	IsActive          bool
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AccountInfoField is one entry of the per-product account info schema.
type AccountInfoField struct {
	Name     string `json:"fieldName"`
	Required bool   `json:"isRequired"`
}

func (p Product) IsAvailable() bool {
	return p.IsActive && !p.IsDeleted
}

// OfferPrice returns the final price when an offer is active.
func (p Product) OfferPrice() *decimal.Decimal {
	if p.IsOffer && p.FinalPrice != nil {
		return p.FinalPrice
	}
	return nil
}

type SubProduct struct {
	ID         string
	ProductID  string
	Name       string
	Price      *decimal.Decimal
	IsOffer    bool
	FinalPrice *decimal.Decimal
	IsActive   bool
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s SubProduct) IsAvailable() bool {
	return s.IsActive && !s.IsDeleted
}

func (s SubProduct) OfferPrice() *decimal.Decimal {
	if s.IsOffer && s.FinalPrice != nil {
		return s.FinalPrice
	}
	return nil
}
