package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memoryOrderRepository is a compare-and-swap store keyed by order id.
type memoryOrderRepository struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	updates int
	// beforeUpdate runs without the lock, letting tests interleave writers.
	beforeUpdate func(id string)
}

func newMemoryOrderRepository(orders ...domain.Order) *memoryOrderRepository {
	repo := &memoryOrderRepository{orders: map[string]domain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
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

func (r *memoryOrderRepository) UpdateConditional(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate(id)
	}

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
	r.updates++
	return &o, nil
}

func (r *memoryOrderRepository) get(id string) domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

func testOrder(id string, status domain.OrderStatus, method domain.PaymentMethod, total string) domain.Order {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:            id,
		BuyerID:       "buyer-1",
		BuyerEmail:    "buyer@example.com",
		ProductID:     "steam-25",
		BaseAmount:    decimal.RequireFromString(total),
		TotalAmount:   decimal.RequireFromString(total),
		Status:        status,
		PaymentMethod: method,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}
