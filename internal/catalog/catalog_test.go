package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	"storefront/internal/pricing"
)

type mockRepository struct {
	GetProductFunc    func(ctx context.Context, id string) (*domain.Product, error)
	GetSubProductFunc func(ctx context.Context, id string) (*domain.SubProduct, error)
}

func (m *mockRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return m.GetProductFunc(ctx, id)
}

func (m *mockRepository) GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error) {
	if m.GetSubProductFunc == nil {
		return nil, nil
	}
	return m.GetSubProductFunc(ctx, id)
}

type mockCoupons struct {
	GetCouponFunc func(ctx context.Context, code string) (*domain.Coupon, error)
}

func (m *mockCoupons) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.GetCouponFunc == nil {
		return nil, nil
	}
	return m.GetCouponFunc(ctx, code)
}

func packageRepo() *mockRepository {
	return &mockRepository{
		GetProductFunc: func(ctx context.Context, id string) (*domain.Product, error) {
			if id != "pubg" {
				return nil, nil
			}
			return &domain.Product{ID: "pubg", Type: domain.ProductTypePackage, IsActive: true}, nil
		},
		GetSubProductFunc: func(ctx context.Context, id string) (*domain.SubProduct, error) {
			switch id {
			case "pubg-600":
				return &domain.SubProduct{ID: id, ProductID: "pubg", Price: lo.ToPtr(decimal.RequireFromString("10.00")), IsActive: true}, nil
			case "freefire-100":
				return &domain.SubProduct{ID: id, ProductID: "freefire", Price: lo.ToPtr(decimal.NewFromInt(3)), IsActive: true}, nil
			}
			return nil, nil
		},
	}
}

func TestQuote_PackageWithCoupon(t *testing.T) {
	coupons := &mockCoupons{
		GetCouponFunc: func(ctx context.Context, code string) (*domain.Coupon, error) {
			return &domain.Coupon{Code: code, Type: domain.CouponTypePercentage, Value: decimal.NewFromInt(20), IsValid: true}, nil
		},
	}
	uc := NewQuoteUseCase(packageRepo(), coupons, pricing.NewEngine())

	quote, err := uc.Quote(context.Background(), dto.QuoteRequest{ProductID: "pubg", SubProductID: lo.ToPtr("pubg-600"), CouponCode: "SAVE20"})
	require.NoError(t, err)

	assert.True(t, quote.Total.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, quote.CouponApplied)
}

func TestQuote_Errors(t *testing.T) {
	uc := NewQuoteUseCase(packageRepo(), &mockCoupons{}, pricing.NewEngine())

	_, err := uc.Quote(context.Background(), dto.QuoteRequest{ProductID: "unknown"})
	assert.Error(t, err)

	_, err = uc.Quote(context.Background(), dto.QuoteRequest{ProductID: "pubg", SubProductID: lo.ToPtr("freefire-100")})
	assert.ErrorContains(t, err, "quote validation failed")

	_, err = uc.Quote(context.Background(), dto.QuoteRequest{ProductID: "pubg"})
	assert.Error(t, err, "package product without a package cannot be priced")
}

func TestHandleQuote(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "priced", body: `{"productId":"pubg","subProductId":"pubg-600"}`, status: http.StatusOK},
		{name: "missing product", body: `{}`, status: http.StatusBadRequest},
		{name: "unknown product", body: `{"productId":"nope"}`, status: http.StatusNotFound},
		{name: "foreign package", body: `{"productId":"pubg","subProductId":"freefire-100"}`, status: http.StatusBadRequest},
		{name: "unpriceable", body: `{"productId":"pubg"}`, status: http.StatusInternalServerError},
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewModule(packageRepo(), &mockCoupons{}, pricing.NewEngine(), zap.NewNop())

			rec := httptest.NewRecorder()
			c.HandleQuote(rec, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandleQuote_ResponseBody(t *testing.T) {
	c := NewModule(packageRepo(), &mockCoupons{}, pricing.NewEngine(), zap.NewNop())

	rec := httptest.NewRecorder()
	c.HandleQuote(rec, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"productId":"pubg","subProductId":"pubg-600"}`)))

	var resp dto.QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(10)))
	assert.False(t, resp.CouponApplied)
	assert.NotEmpty(t, resp.TraceID)
}

func TestQuote_RepositoryError(t *testing.T) {
	repo := &mockRepository{
		GetProductFunc: func(ctx context.Context, id string) (*domain.Product, error) {
			return nil, errors.New("connection refused")
		},
	}
	uc := NewQuoteUseCase(repo, &mockCoupons{}, pricing.NewEngine())

	_, err := uc.Quote(context.Background(), dto.QuoteRequest{ProductID: "pubg"})
	assert.ErrorContains(t, err, "connection refused")
}
