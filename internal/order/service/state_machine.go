package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateConditional(ctx context.Context, id string, expected domain.OrderStatus, patch domain.OrderPatch) (*domain.Order, error)
}

type TransitionSource string

const (
	SourceAdmin   TransitionSource = "admin"
	SourceWebhook TransitionSource = "webhook"
)

type TransitionRequest struct {
	OrderID string
	Target  domain.OrderStatus
	// AdminNote replaces the stored note when set.
	AdminNote        *string
	PaymentReference *string
	Source           TransitionSource
}

// TransitionOutcome reports whether this call moved the order. Applied is
// false for idempotent re-confirmations.
type TransitionOutcome struct {
	Order   *domain.Order
	Applied bool
}

type StateMachine struct {
	repo        OrderRepository
	logger      *zap.Logger
	maxAttempts int
	now         func() time.Time
}

func NewStateMachine(repo OrderRepository, logger *zap.Logger, maxAttempts int) *StateMachine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &StateMachine{
		repo:        repo,
		logger:      logger,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// CheckTransition validates an edge of the status graph. Same-status moves
// are allowed for every status but rejected.
func CheckTransition(from, to domain.OrderStatus, method domain.PaymentMethod) error {
	if _, err := domain.ToOrderStatus(string(to)); err != nil {
		return apperrors.NewInvalidTransitionError(string(from), string(to))
	}

	allowed := false
	switch from {
	case domain.OrderStatusPending:
		switch to {
		case domain.OrderStatusPending, domain.OrderStatusPaid, domain.OrderStatusRejected:
			allowed = true
		case domain.OrderStatusDelivered:
			// Manual methods are confirmed and delivered in one admin review.
			allowed = method.IsManualTransfer() || method == domain.PaymentMethodCash
		}
	case domain.OrderStatusPaid:
		allowed = to == domain.OrderStatusPaid || to == domain.OrderStatusDelivered || to == domain.OrderStatusRejected
	case domain.OrderStatusDelivered:
		allowed = to == domain.OrderStatusDelivered
	}

	if !allowed {
		return apperrors.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}

func (m *StateMachine) Transition(ctx context.Context, req TransitionRequest) (*domain.Order, error) {
	outcome, err := m.Apply(ctx, req)
	if err != nil {
		return nil, err
	}
	return outcome.Order, nil
}

// Apply loads the order, checks the edge and writes it guarded by the loaded
// status. A lost race reloads and re-evaluates, so two writers racing from
// the same status never both apply.
func (m *StateMachine) Apply(ctx context.Context, req TransitionRequest) (TransitionOutcome, error) {
	logger := m.logger.With(
		zap.String("orderId", req.OrderID),
		zap.String("target", string(req.Target)),
		zap.String("source", string(req.Source)),
	)

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		order, err := m.repo.FindByID(ctx, req.OrderID)
		if err != nil {
			return TransitionOutcome{}, err
		}

		if err := CheckTransition(order.Status, req.Target, order.PaymentMethod); err != nil {
			logger.Info("transition refused", zap.String("status", string(order.Status)))
			return TransitionOutcome{}, err
		}

		patch := m.buildPatch(*order, req)
		if patch.IsEmpty() {
			logger.Debug("transition already applied", zap.String("status", string(order.Status)))
			return TransitionOutcome{Order: order, Applied: false}, nil
		}

		updated, err := m.repo.UpdateConditional(ctx, order.ID, order.Status, patch)
		if errors.Is(err, apperrors.ErrStatusMismatch) {
			logger.Debug("status changed concurrently, reloading",
				zap.Int("attempt", attempt),
				zap.String("expected", string(order.Status)),
			)
			continue
		}
		if err != nil {
			return TransitionOutcome{}, err
		}

		applied := order.Status != req.Target
		if applied {
			logger.Info("order transitioned",
				zap.String("from", string(order.Status)),
				zap.String("status", string(updated.Status)),
				zap.Bool("refunded", patch.RefundAmount != nil),
			)
		}
		return TransitionOutcome{Order: updated, Applied: applied}, nil
	}

	logger.Warn("transition abandoned after concurrent updates", zap.Int("attempts", m.maxAttempts))
	return TransitionOutcome{}, apperrors.NewConflictError(fmt.Sprintf("order %s kept changing, retry later", req.OrderID))
}

func (m *StateMachine) buildPatch(order domain.Order, req TransitionRequest) domain.OrderPatch {
	var patch domain.OrderPatch

	if req.AdminNote != nil && *req.AdminNote != order.AdminNote {
		note := *req.AdminNote
		patch.AdminNote = &note
	}
	if order.Status == req.Target {
		return patch
	}

	target := req.Target
	patch.Status = &target

	if req.PaymentReference != nil && *req.PaymentReference != "" {
		ref := *req.PaymentReference
		patch.PaymentReference = &ref
	}

	if order.Status == domain.OrderStatusPaid &&
		req.Target == domain.OrderStatusRejected &&
		order.PaymentMethod == domain.PaymentMethodCard &&
		!order.IsRefunded() {
		amount := order.TotalAmount
		date := m.now().UTC()
		patch.RefundAmount = &amount
		patch.RefundDate = &date
	}

	return patch
}

// UpdateAdminNote replaces the note in any status, terminal ones included.
// The write is still guarded by the status it was read in.
func (m *StateMachine) UpdateAdminNote(ctx context.Context, orderID, note string) (*domain.Order, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		order, err := m.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}

		updated, err := m.repo.UpdateConditional(ctx, order.ID, order.Status, domain.OrderPatch{AdminNote: &note})
		if errors.Is(err, apperrors.ErrStatusMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}

		m.logger.Info("admin note updated", zap.String("orderId", orderID), zap.String("status", string(updated.Status)))
		return updated, nil
	}

	return nil, apperrors.NewConflictError(fmt.Sprintf("order %s kept changing, retry later", orderID))
}
