package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
	"storefront/internal/payment"
)

type mockPlaceOrder struct {
	PlaceOrderFunc func(ctx context.Context, req usecase.PlaceOrderRequest) (*usecase.PlaceOrderResult, error)
}

func (m *mockPlaceOrder) PlaceOrder(ctx context.Context, req usecase.PlaceOrderRequest) (*usecase.PlaceOrderResult, error) {
	return m.PlaceOrderFunc(ctx, req)
}

type mockCheckout struct {
	CreateCheckoutSessionFunc func(ctx context.Context, orderID, buyerID string) (*usecase.CheckoutResult, error)
}

func (m *mockCheckout) CreateCheckoutSession(ctx context.Context, orderID, buyerID string) (*usecase.CheckoutResult, error) {
	return m.CreateCheckoutSessionFunc(ctx, orderID, buyerID)
}

type mockCustomerOrders struct {
	GetOrderFunc func(ctx context.Context, orderID, buyerID string) (*usecase.CustomerOrderView, error)
}

func (m *mockCustomerOrders) GetOrder(ctx context.Context, orderID, buyerID string) (*usecase.CustomerOrderView, error) {
	return m.GetOrderFunc(ctx, orderID, buyerID)
}

type mockTransfers struct {
	SubmitTransferFunc func(ctx context.Context, orderID, buyerID string, details service.TransferDetails, image service.EvidenceImage) (*service.TransferConfirmation, error)
}

func (m *mockTransfers) SubmitTransfer(ctx context.Context, orderID, buyerID string, details service.TransferDetails, image service.EvidenceImage) (*service.TransferConfirmation, error) {
	return m.SubmitTransferFunc(ctx, orderID, buyerID, details, image)
}

type mockAdminOrders struct {
	TransitionFunc func(ctx context.Context, orderID string, target domain.OrderStatus, note *string) (*domain.Order, error)
	UpdateNoteFunc func(ctx context.Context, orderID, note string) (*domain.Order, error)
	GetOrderFunc   func(ctx context.Context, orderID string) (*usecase.AdminOrderView, error)
	ListOrdersFunc func(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error)
}

func (m *mockAdminOrders) Transition(ctx context.Context, orderID string, target domain.OrderStatus, note *string) (*domain.Order, error) {
	return m.TransitionFunc(ctx, orderID, target, note)
}

func (m *mockAdminOrders) UpdateNote(ctx context.Context, orderID, note string) (*domain.Order, error) {
	return m.UpdateNoteFunc(ctx, orderID, note)
}

func (m *mockAdminOrders) GetOrder(ctx context.Context, orderID string) (*usecase.AdminOrderView, error) {
	return m.GetOrderFunc(ctx, orderID)
}

func (m *mockAdminOrders) ListOrders(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	return m.ListOrdersFunc(ctx, filter, page)
}

type mockWebhook struct {
	HandleWebhookFunc func(ctx context.Context, payload []byte, signature string) (*usecase.WebhookResult, error)
}

func (m *mockWebhook) HandleWebhook(ctx context.Context, payload []byte, signature string) (*usecase.WebhookResult, error) {
	return m.HandleWebhookFunc(ctx, payload, signature)
}

func withOrderID(r *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleOrder() domain.Order {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:               "o-1",
		BuyerID:          "buyer-1",
		ProductID:        "steam-25",
		BaseAmount:       decimal.RequireFromString("25.00"),
		TotalAmount:      decimal.RequireFromString("25.00"),
		Status:           domain.OrderStatusPending,
		PaymentMethod:    domain.PaymentMethodCard,
		PaymentReference: "pi_123",
		AdminNote:        "vip buyer",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func newOrderController(po PlaceOrderUseCase, co CheckoutUseCase, orders CustomerOrdersUseCase, tr TransferService) *OrderController {
	return NewOrderController(po, co, orders, tr, 1024, zap.NewNop())
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.NewNotFoundError("order with id x not found"), http.StatusNotFound, "NOT_FOUND"},
		{"not eligible", apperrors.NewNotEligibleError("order is paid"), http.StatusConflict, "NOT_ELIGIBLE"},
		{"invalid transition", apperrors.NewInvalidTransitionError("rejected", "paid"), http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", apperrors.NewConflictError("retry later"), http.StatusConflict, "CONFLICT"},
		{"pricing", apperrors.NewPricingError("product has no price"), http.StatusInternalServerError, "PRICING_ERROR"},
		{"decryption", apperrors.NewDecryptionError(errors.New("auth failed")), http.StatusInternalServerError, "DECRYPTION_ERROR"},
		{"gateway", apperrors.NewGatewayError("create checkout session", false, nil), http.StatusBadGateway, "GATEWAY_ERROR"},
		{"gateway retryable", apperrors.NewGatewayError("create checkout session", true, nil), http.StatusServiceUnavailable, "GATEWAY_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			responder{logger: zap.NewNop()}.writeError(rec, "trace-1", tt.err, zap.NewNop())

			assert.Equal(t, tt.status, rec.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, "trace-1", body.TraceID)
		})
	}
}

func TestWriteError_PricingMessageIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	responder{logger: zap.NewNop()}.writeError(rec, "t", apperrors.NewPricingError("sub-product pubg-600 has negative price"), zap.NewNop())

	assert.NotContains(t, rec.Body.String(), "pubg-600")
}

func TestPlaceOrder_Created(t *testing.T) {
	var got usecase.PlaceOrderRequest
	po := &mockPlaceOrder{
		PlaceOrderFunc: func(ctx context.Context, req usecase.PlaceOrderRequest) (*usecase.PlaceOrderResult, error) {
			got = req
			o := sampleOrder()
			return &usecase.PlaceOrderResult{Order: &o, CheckoutURL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
		},
	}
	c := newOrderController(po, nil, nil, nil)

	body := `{"buyerId":"buyer-1","buyerEmail":"b@example.com","productId":"steam-25",
		"accountInfo":[{"fieldName":"email","value":"gamer@example.com"}],"paymentMethod":"card"}`
	rec := httptest.NewRecorder()
	c.PlaceOrder(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.PaymentMethodCard, got.PaymentMethod)
	assert.Equal(t, []domain.AccountInfoEntry{{Field: "email", Value: "gamer@example.com"}}, got.AccountInfo)

	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "o-1", resp.Order.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp.CheckoutURL)
	assert.Empty(t, resp.Order.AdminNote)
	assert.Empty(t, resp.Order.PaymentReference)
	assert.NotEmpty(t, resp.TraceID)
}

func TestPlaceOrder_BadRequests(t *testing.T) {
	po := &mockPlaceOrder{
		PlaceOrderFunc: func(ctx context.Context, req usecase.PlaceOrderRequest) (*usecase.PlaceOrderResult, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	}
	c := newOrderController(po, nil, nil, nil)

	for name, body := range map[string]string{
		"malformed json": `{"buyerId":`,
		"missing fields": `{}`,
		"unknown method": `{"buyerId":"b","buyerEmail":"b@example.com","productId":"p","paymentMethod":"paypal"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.PlaceOrder(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp validationErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestGetOrder_RequiresBuyerHeader(t *testing.T) {
	orders := &mockCustomerOrders{
		GetOrderFunc: func(ctx context.Context, orderID, buyerID string) (*usecase.CustomerOrderView, error) {
			assert.Equal(t, "o-1", orderID)
			assert.Equal(t, "buyer-1", buyerID)
			o := sampleOrder()
			o.Evidence = &domain.PaymentEvidence{ImageURL: "https://cdn/a.png"}
			return &usecase.CustomerOrderView{Order: &o, MaskedTransferNumber: "********678"}, nil
		},
	}
	c := newOrderController(nil, nil, orders, nil)

	rec := httptest.NewRecorder()
	c.GetOrder(rec, withOrderID(httptest.NewRequest(http.MethodGet, "/orders/o-1", nil), "o-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := withOrderID(httptest.NewRequest(http.MethodGet, "/orders/o-1", nil), "o-1")
	req.Header.Set(BuyerIDHeader, "buyer-1")
	rec = httptest.NewRecorder()
	c.GetOrder(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Order.Evidence)
	assert.Equal(t, "********678", resp.Order.Evidence.TransferNumber)
}

func TestCreateCheckout_NotEligible(t *testing.T) {
	co := &mockCheckout{
		CreateCheckoutSessionFunc: func(ctx context.Context, orderID, buyerID string) (*usecase.CheckoutResult, error) {
			return nil, apperrors.NewNotEligibleError("order o-1 is not paid by card")
		},
	}
	c := newOrderController(nil, co, nil, nil)

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/orders/o-1/checkout", nil), "o-1")
	req.Header.Set(BuyerIDHeader, "buyer-1")
	rec := httptest.NewRecorder()
	c.CreateCheckout(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCheckout_RequiresBuyerHeader(t *testing.T) {
	calls := 0
	co := &mockCheckout{
		CreateCheckoutSessionFunc: func(ctx context.Context, orderID, buyerID string) (*usecase.CheckoutResult, error) {
			calls++
			assert.Equal(t, "buyer-1", buyerID)
			o := sampleOrder()
			return &usecase.CheckoutResult{Order: &o, SessionID: "cs_1", URL: "https://checkout/cs_1"}, nil
		},
	}
	c := newOrderController(nil, co, nil, nil)

	rec := httptest.NewRecorder()
	c.CreateCheckout(rec, withOrderID(httptest.NewRequest(http.MethodPost, "/orders/o-1/checkout", nil), "o-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/orders/o-1/checkout", nil), "o-1")
	req.Header.Set(BuyerIDHeader, "buyer-1")
	rec = httptest.NewRecorder()
	c.CreateCheckout(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}

func multipartTransfer(t *testing.T, withImage bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField(transferNumberForm, "01012345678"))
	if withImage {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="evidence"; filename="receipt.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders/o-1/transfer", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(BuyerIDHeader, "buyer-1")
	return withOrderID(req, "o-1")
}

func TestSubmitTransfer_PassesMultipartFields(t *testing.T) {
	tr := &mockTransfers{
		SubmitTransferFunc: func(ctx context.Context, orderID, buyerID string, details service.TransferDetails, image service.EvidenceImage) (*service.TransferConfirmation, error) {
			assert.Equal(t, "buyer-1", buyerID)
			assert.Equal(t, "01012345678", details.TransferNumber)
			assert.Equal(t, "image/png", image.ContentType)
			assert.Equal(t, int64(9), image.Size)
			body, err := io.ReadAll(image.Content)
			require.NoError(t, err)
			assert.Equal(t, "png-bytes", string(body))
			return &service.TransferConfirmation{OrderID: orderID, MaskedTransferNumber: "********678", ImageURL: "https://cdn/a.png"}, nil
		},
	}
	c := newOrderController(nil, nil, nil, tr)

	rec := httptest.NewRecorder()
	c.SubmitTransfer(rec, multipartTransfer(t, true))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.TransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "********678", resp.MaskedTransferNumber)
}

func TestSubmitTransfer_MissingImageIsValidationError(t *testing.T) {
	tr := &mockTransfers{
		SubmitTransferFunc: func(ctx context.Context, orderID, buyerID string, details service.TransferDetails, image service.EvidenceImage) (*service.TransferConfirmation, error) {
			assert.Nil(t, image.Content)
			return nil, apperrors.NewValidationError("transfer validation failed", apperrors.ValidationDetail{
				Field: "evidence", Message: "evidence image is required",
			})
		},
	}
	c := newOrderController(nil, nil, nil, tr)

	rec := httptest.NewRecorder()
	c.SubmitTransfer(rec, multipartTransfer(t, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTransfer_NotMultipart(t *testing.T) {
	c := newOrderController(nil, nil, nil, &mockTransfers{})

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/orders/o-1/transfer", strings.NewReader("{}")), "o-1")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(BuyerIDHeader, "buyer-1")
	rec := httptest.NewRecorder()
	c.SubmitTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTransfer_RequiresBuyerHeader(t *testing.T) {
	c := newOrderController(nil, nil, nil, &mockTransfers{})

	req := multipartTransfer(t, true)
	req.Header.Del(BuyerIDHeader)
	rec := httptest.NewRecorder()
	c.SubmitTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), BuyerIDHeader)
}

func TestAdminListOrders_ParsesQuery(t *testing.T) {
	admin := &mockAdminOrders{
		ListOrdersFunc: func(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, domain.OrderStatusPaid, *filter.Status)
			assert.Equal(t, "buyer-1", filter.BuyerID)
			assert.Equal(t, domain.Page{Number: 2, Size: 10}, page)
			return &domain.OrderPage{Items: []domain.Order{sampleOrder()}, Total: 11, Page: 2, PageSize: 10}, nil
		},
	}
	c := NewAdminController(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	c.ListOrders(rec, httptest.NewRequest(http.MethodGet, "/admin/orders?status=paid&buyerId=buyer-1&page=2&pageSize=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.OrderListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 11, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "vip buyer", resp.Items[0].AdminNote)
}

func TestAdminListOrders_InvalidQuery(t *testing.T) {
	c := NewAdminController(&mockAdminOrders{}, zap.NewNop())

	rec := httptest.NewRecorder()
	c.ListOrders(rec, httptest.NewRequest(http.MethodGet, "/admin/orders?status=shipped&page=0", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp validationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Details, 2)
}

func TestAdminTransitionStatus(t *testing.T) {
	admin := &mockAdminOrders{
		TransitionFunc: func(ctx context.Context, orderID string, target domain.OrderStatus, note *string) (*domain.Order, error) {
			assert.Equal(t, domain.OrderStatusRejected, target)
			require.NotNil(t, note)
			assert.Equal(t, "fraud", *note)
			return nil, apperrors.NewInvalidTransitionError("rejected", "rejected")
		},
	}
	c := NewAdminController(admin, zap.NewNop())

	req := withOrderID(httptest.NewRequest(http.MethodPatch, "/admin/orders/o-1/status",
		strings.NewReader(`{"status":"rejected","adminNote":"fraud"}`)), "o-1")
	rec := httptest.NewRecorder()
	c.TransitionStatus(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminGetOrder_ShowsDecryptedEvidence(t *testing.T) {
	admin := &mockAdminOrders{
		GetOrderFunc: func(ctx context.Context, orderID string) (*usecase.AdminOrderView, error) {
			o := sampleOrder()
			o.PaymentMethod = domain.PaymentMethodWallet
			o.Evidence = &domain.PaymentEvidence{TransferNumberEnc: "ciphertext", ImageURL: "https://cdn/a.png"}
			return &usecase.AdminOrderView{Order: &o, TransferNumber: "01012345678"}, nil
		},
	}
	c := NewAdminController(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	c.GetOrder(rec, withOrderID(httptest.NewRequest(http.MethodGet, "/admin/orders/o-1", nil), "o-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "01012345678")
	assert.NotContains(t, rec.Body.String(), "ciphertext")
}

func TestHandleStripe(t *testing.T) {
	tests := []struct {
		name   string
		result *usecase.WebhookResult
		err    error
		status int
	}{
		{name: "acknowledged", result: &usecase.WebhookResult{EventID: "evt_1", Action: payment.WebhookActionMarkPaid, Applied: true}, status: http.StatusOK},
		{name: "bad signature", err: apperrors.NewGatewayError("verify webhook", false, errors.New("no signature")), status: http.StatusBadRequest},
		{name: "storage failure", err: errors.New("db down"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := &mockWebhook{
				HandleWebhookFunc: func(ctx context.Context, payload []byte, signature string) (*usecase.WebhookResult, error) {
					assert.Equal(t, `{"id":"evt_1"}`, string(payload))
					assert.Equal(t, "t=1,v1=abc", signature)
					return tt.result, tt.err
				},
			}
			c := NewWebhookController(wh, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
			req.Header.Set(StripeSignatureHeader, "t=1,v1=abc")
			rec := httptest.NewRecorder()
			c.HandleStripe(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
