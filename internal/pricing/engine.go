package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

const amountScale = 2

var hundred = decimal.NewFromInt(100)

// Quote is the result of pricing one order. Discount is what the coupon
// actually removed, so Base - Discount == Total.
type Quote struct {
	Base          decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	CouponApplied bool
	CouponCode    string
	CouponType    domain.CouponType
}

// Engine computes chargeable totals from a frozen catalog and coupon snapshot.
// It performs no I/O.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) ComputeTotal(product domain.Product, subProduct *domain.SubProduct, coupon *domain.Coupon) (Quote, error) {
	base, err := e.BasePrice(product, subProduct)
	if err != nil {
		return Quote{}, err
	}

	quote := Quote{Base: base, Discount: decimal.Zero, Total: base}
	if coupon == nil || !coupon.IsValid {
		return quote, nil
	}

	discount, ok := couponDiscount(base, *coupon)
	if !ok {
		return quote, nil
	}

	total := base.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(amountScale)

	quote.Total = total
	quote.Discount = base.Sub(total)
	quote.CouponApplied = true
	quote.CouponCode = coupon.Code
	quote.CouponType = coupon.Type
	return quote, nil
}

// BasePrice resolves the undiscounted price following the offer/base fallback
// order for the product type.
func (e *Engine) BasePrice(product domain.Product, subProduct *domain.SubProduct) (decimal.Decimal, error) {
	var candidates []*decimal.Decimal

	switch product.Type {
	case domain.ProductTypeDirect:
		candidates = append(candidates, product.OfferPrice(), product.Price)
		if subProduct != nil {
			candidates = append(candidates, subProduct.OfferPrice(), subProduct.Price)
		}
	case domain.ProductTypePackage:
		if subProduct == nil {
			return decimal.Zero, apperrors.NewPricingError(fmt.Sprintf("product %s requires a package to be priced", product.ID))
		}
		candidates = append(candidates, subProduct.OfferPrice(), subProduct.Price)
	default:
		return decimal.Zero, apperrors.NewPricingError(fmt.Sprintf("product %s has unknown type %q", product.ID, product.Type))
	}

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.IsNegative() {
			return decimal.Zero, apperrors.NewPricingError(fmt.Sprintf("product %s has a negative price", product.ID))
		}
		return c.Round(amountScale), nil
	}

	return decimal.Zero, apperrors.NewPricingError(fmt.Sprintf("no price resolves for product %s", product.ID))
}

// couponDiscount returns the raw discount, or false when the coupon does not
// apply to this base amount.
func couponDiscount(base decimal.Decimal, coupon domain.Coupon) (decimal.Decimal, bool) {
	if base.LessThan(coupon.MinOrderAmount) {
		return decimal.Zero, false
	}

	switch coupon.Type {
	case domain.CouponTypePercentage:
		discount := base.Mul(coupon.Value).Div(hundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
		return decimal.Max(discount, decimal.Zero), true
	case domain.CouponTypeFixed:
		return decimal.Max(coupon.Value, decimal.Zero), true
	default:
		return decimal.Zero, false
	}
}

// ToMinorUnits converts an amount to the smallest currency unit (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
