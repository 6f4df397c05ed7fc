package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/service"
	"storefront/internal/payment"
	"storefront/internal/pricing"
)

type mockOrderRepository struct {
	CreateFunc                func(ctx context.Context, order domain.Order) (*domain.Order, error)
	FindByIDFunc              func(ctx context.Context, id string) (*domain.Order, error)
	FindByCheckoutSessionFunc func(ctx context.Context, sessionID string) (*domain.Order, error)
	UpdateConditionalFunc     func(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error)
	FindManyFunc              func(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error)
}

func (m *mockOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	return &order, nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func (m *mockOrderRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	if m.FindByCheckoutSessionFunc != nil {
		return m.FindByCheckoutSessionFunc(ctx, sessionID)
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func (m *mockOrderRepository) UpdateConditional(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error) {
	if m.UpdateConditionalFunc != nil {
		return m.UpdateConditionalFunc(ctx, id, expected, patch)
	}
	return nil, apperrors.ErrStatusMismatch
}

func (m *mockOrderRepository) FindMany(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	if m.FindManyFunc != nil {
		return m.FindManyFunc(ctx, filter, page)
	}
	return &domain.OrderPage{}, nil
}

// memoryOrderRepository is a compare-and-swap store used to drive the real
// state machine end to end.
type memoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemoryOrderRepository(orders ...domain.Order) *memoryOrderRepository {
	repo := &memoryOrderRepository{orders: map[string]domain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *memoryOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return nil, apperrors.NewConflictError("duplicate order id")
	}
	r.orders[order.ID] = order
	return &order, nil
}

func (r *memoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	return &o, nil
}

func (r *memoryOrderRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.CheckoutSessionID == sessionID {
			return &o, nil
		}
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func (r *memoryOrderRepository) UpdateConditional(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if o.Status != expected {
		return nil, apperrors.ErrStatusMismatch
	}
	o = patch.Apply(o, time.Now())
	r.orders[id] = o
	return &o, nil
}

func (r *memoryOrderRepository) FindMany(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Order
	for _, o := range r.orders {
		if filter.Matches(o) {
			items = append(items, o)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &domain.OrderPage{Items: items, Total: len(items), Page: page.Number, PageSize: page.Size}, nil
}

type mockCatalog struct {
	GetProductFunc    func(ctx context.Context, id string) (*domain.Product, error)
	GetSubProductFunc func(ctx context.Context, id string) (*domain.SubProduct, error)
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCatalog) GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error) {
	if m.GetSubProductFunc != nil {
		return m.GetSubProductFunc(ctx, id)
	}
	return nil, nil
}

type mockCouponStore struct {
	GetCouponFunc func(ctx context.Context, code string) (*domain.Coupon, error)
	RedeemFunc    func(ctx context.Context, code string) error
	redeemed      []string
	released      []string
}

func (m *mockCouponStore) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.GetCouponFunc != nil {
		return m.GetCouponFunc(ctx, code)
	}
	return nil, nil
}

func (m *mockCouponStore) Redeem(ctx context.Context, code string) error {
	m.redeemed = append(m.redeemed, code)
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, code)
	}
	return nil
}

func (m *mockCouponStore) Release(ctx context.Context, code string) error {
	m.released = append(m.released, code)
	return nil
}

type mockValidator struct {
	ValidateFunc       func(ctx context.Context, product domain.Product, accountInfo []domain.AccountInfoEntry, subProductID *string) (*domain.SubProduct, error)
	ValidateCouponFunc func(code string, coupon *domain.Coupon) error
}

func (m *mockValidator) Validate(ctx context.Context, product domain.Product, accountInfo []domain.AccountInfoEntry, subProductID *string) (*domain.SubProduct, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, product, accountInfo, subProductID)
	}
	return nil, nil
}

func (m *mockValidator) ValidateCoupon(code string, coupon *domain.Coupon) error {
	if m.ValidateCouponFunc != nil {
		return m.ValidateCouponFunc(code, coupon)
	}
	return nil
}

type mockGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
	requests                  []payment.CheckoutRequest
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	m.requests = append(m.requests, req)
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, req)
	}
	return payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type mockWebhookParser struct {
	ParseWebhookFunc func(payload []byte, signatureHeader string) (payment.WebhookEvent, error)
}

func (m *mockWebhookParser) ParseWebhook(payload []byte, signatureHeader string) (payment.WebhookEvent, error) {
	return m.ParseWebhookFunc(payload, signatureHeader)
}

type mockStateMachine struct {
	ApplyFunc           func(ctx context.Context, req service.TransitionRequest) (service.TransitionOutcome, error)
	TransitionFunc      func(ctx context.Context, req service.TransitionRequest) (*domain.Order, error)
	UpdateAdminNoteFunc func(ctx context.Context, orderID, note string) (*domain.Order, error)
}

func (m *mockStateMachine) Apply(ctx context.Context, req service.TransitionRequest) (service.TransitionOutcome, error) {
	return m.ApplyFunc(ctx, req)
}

func (m *mockStateMachine) Transition(ctx context.Context, req service.TransitionRequest) (*domain.Order, error) {
	return m.TransitionFunc(ctx, req)
}

func (m *mockStateMachine) UpdateAdminNote(ctx context.Context, orderID, note string) (*domain.Order, error) {
	return m.UpdateAdminNoteFunc(ctx, orderID, note)
}

// prefixCipher treats "enc:<plaintext>" as ciphertext.
type prefixCipher struct {
	failOn string
}

func (c prefixCipher) Decrypt(ciphertext string) (string, error) {
	if c.failOn != "" && ciphertext == c.failOn {
		return "", apperrors.NewDecryptionError(fmt.Errorf("message authentication failed"))
	}
	return ciphertext[len("enc:"):], nil
}

func (c prefixCipher) Mask(plaintext string, visibleTail int) string {
	runes := []rune(plaintext)
	if len(runes) <= visibleTail {
		return "***"
	}
	out := make([]rune, len(runes))
	for i := range runes {
		if i < len(runes)-visibleTail {
			out[i] = '*'
		} else {
			out[i] = runes[i]
		}
	}
	return string(out)
}

func cardOrder(id, total string) domain.Order {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:            id,
		BuyerID:       "buyer-1",
		BuyerEmail:    "buyer@example.com",
		ProductID:     "steam-25",
		BaseAmount:    decimal.RequireFromString(total),
		TotalAmount:   decimal.RequireFromString(total),
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCard,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func paidEvent(orderID, total string) payment.WebhookEvent {
	return payment.WebhookEvent{
		EventID:          "evt_1",
		Type:             "checkout.session.completed",
		Action:           payment.WebhookActionMarkPaid,
		OrderID:          orderID,
		SessionID:        "cs_test_1",
		PaymentReference: "pi_123",
		AmountMinorUnits: pricing.ToMinorUnits(decimal.RequireFromString(total)),
	}
}
