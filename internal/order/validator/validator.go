package validator

import (
	"context"
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type SubProductReader interface {
	GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error)
}

type PriceResolver interface {
	BasePrice(product domain.Product, subProduct *domain.SubProduct) (decimal.Decimal, error)
}

type Validator struct {
	catalog  SubProductReader
	prices   PriceResolver
	validate *validatorv10.Validate
}

func New(catalog SubProductReader, prices PriceResolver) *Validator {
	return &Validator{
		catalog:  catalog,
		prices:   prices,
		validate: validatorv10.New(),
	}
}

// Validate checks the product against its sale path and the buyer's account
// info against the product's declared field schema. Every violation is
// reported in a single ValidationError. For package products the resolved
// sub-product is returned.
func (v *Validator) Validate(
	ctx context.Context,
	product domain.Product,
	accountInfo []domain.AccountInfoEntry,
	subProductID *string,
) (*domain.SubProduct, error) {
	var details []apperrors.ValidationDetail

	if !product.IsAvailable() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "productId",
			Message: "product is not available",
		})
	}

	subProduct, pathDetails, err := v.validateSalePath(ctx, product, subProductID)
	if err != nil {
		return nil, err
	}
	details = append(details, pathDetails...)
	details = append(details, v.validateAccountInfo(product.AccountInfoFields, accountInfo)...)

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("order validation failed", details...)
	}

	return subProduct, nil
}

// ValidateCoupon rejects unknown or no longer valid coupon codes.
func (v *Validator) ValidateCoupon(code string, coupon *domain.Coupon) error {
	if coupon == nil {
		return apperrors.NewValidationError("order validation failed", apperrors.ValidationDetail{
			Field:   "couponCode",
			Message: fmt.Sprintf("coupon %s does not exist", code),
		})
	}
	if !coupon.IsValid {
		return apperrors.NewValidationError("order validation failed", apperrors.ValidationDetail{
			Field:   "couponCode",
			Message: fmt.Sprintf("coupon %s is not valid", code),
		})
	}
	return nil
}

func (v *Validator) validateSalePath(
	ctx context.Context,
	product domain.Product,
	subProductID *string,
) (*domain.SubProduct, []apperrors.ValidationDetail, error) {
	requested := strings.TrimSpace(lo.FromPtr(subProductID))

	switch product.Type {
	case domain.ProductTypeDirect:
		var details []apperrors.ValidationDetail
		if requested != "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "subProductId",
				Message: "direct products do not accept a package",
			})
		}
		if _, err := v.prices.BasePrice(product, nil); err != nil {
			details = append(details, apperrors.ValidationDetail{
				Field:   "productId",
				Message: "product has no price",
			})
		}
		return nil, details, nil

	case domain.ProductTypePackage:
		if requested == "" {
			return nil, []apperrors.ValidationDetail{{
				Field:   "subProductId",
				Message: "package is required for this product",
			}}, nil
		}

		subProduct, err := v.catalog.GetSubProduct(ctx, requested)
		if err != nil {
			return nil, nil, fmt.Errorf("loading sub-product %s: %w", requested, err)
		}
		if subProduct == nil || subProduct.ProductID != product.ID {
			return nil, []apperrors.ValidationDetail{{
				Field:   "subProductId",
				Message: "package does not belong to this product",
			}}, nil
		}
		if !subProduct.IsAvailable() {
			return nil, []apperrors.ValidationDetail{{
				Field:   "subProductId",
				Message: "package is not available",
			}}, nil
		}
		return subProduct, nil, nil

	default:
		return nil, []apperrors.ValidationDetail{{
			Field:   "productId",
			Message: fmt.Sprintf("unsupported product type %q", product.Type),
		}}, nil
	}
}

func (v *Validator) validateAccountInfo(
	schema []domain.AccountInfoField,
	accountInfo []domain.AccountInfoEntry,
) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail

	declared := lo.SliceToMap(schema, func(f domain.AccountInfoField) (string, bool) {
		return f.Name, true
	})
	supplied := lo.SliceToMap(accountInfo, func(e domain.AccountInfoEntry) (string, string) {
		return e.Field, strings.TrimSpace(e.Value)
	})

	missing := lo.FilterMap(schema, func(f domain.AccountInfoField, _ int) (string, bool) {
		return f.Name, f.Required && supplied[f.Name] == ""
	})
	if len(missing) > 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "accountInfo",
			Message: "missing required fields: " + strings.Join(missing, ", "),
		})
	}

	unknown := lo.Uniq(lo.FilterMap(accountInfo, func(e domain.AccountInfoEntry, _ int) (string, bool) {
		return e.Field, !declared[e.Field]
	}))
	if len(unknown) > 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "accountInfo",
			Message: "unknown fields: " + strings.Join(unknown, ", "),
		})
	}

	duplicates := lo.FindDuplicates(lo.Map(accountInfo, func(e domain.AccountInfoEntry, _ int) string {
		return e.Field
	}))
	if len(duplicates) > 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "accountInfo",
			Message: "duplicate fields: " + strings.Join(duplicates, ", "),
		})
	}

	for _, entry := range accountInfo {
		value := strings.TrimSpace(entry.Value)
		if value == "" || !isEmailField(entry.Field) {
			continue
		}
		if err := v.validate.Var(value, "email"); err != nil {
			details = append(details, apperrors.ValidationDetail{
				Field:   "accountInfo." + entry.Field,
				Message: "must be a valid email address",
			})
		}
	}

	return details
}

func isEmailField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "email") || strings.Contains(lower, "gmail")
}
