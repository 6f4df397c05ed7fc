package usecase

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/service"
)

// AdminOrderView is the operator's view of an order with evidence decrypted.
type AdminOrderView struct {
	Order          *domain.Order
	TransferNumber string
	InstaHandle    string
}

type AdminOrdersUseCase struct {
	repo         OrderRepository
	stateMachine StateMachine
	cipher       Cipher
	logger       *zap.Logger
}

func NewAdminOrdersUseCase(repo OrderRepository, stateMachine StateMachine, cipher Cipher, logger *zap.Logger) *AdminOrdersUseCase {
	return &AdminOrdersUseCase{
		repo:         repo,
		stateMachine: stateMachine,
		cipher:       cipher,
		logger:       logger,
	}
}

func (uc *AdminOrdersUseCase) Transition(ctx context.Context, orderID string, target domain.OrderStatus, note *string) (*domain.Order, error) {
	return uc.stateMachine.Transition(ctx, service.TransitionRequest{
		OrderID:   orderID,
		Target:    target,
		AdminNote: note,
		Source:    service.SourceAdmin,
	})
}

func (uc *AdminOrdersUseCase) UpdateNote(ctx context.Context, orderID, note string) (*domain.Order, error) {
	return uc.stateMachine.UpdateAdminNote(ctx, orderID, note)
}

func (uc *AdminOrdersUseCase) GetOrder(ctx context.Context, orderID string) (*AdminOrderView, error) {
	order, err := uc.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &AdminOrderView{Order: order}
	if order.Evidence == nil {
		return view, nil
	}

	if view.TransferNumber, err = uc.cipher.Decrypt(order.Evidence.TransferNumberEnc); err != nil {
		uc.logger.Error("decrypting transfer number failed", zap.String("orderId", order.ID), zap.Error(err))
		return nil, err
	}
	if order.Evidence.InstaHandleEnc != "" {
		if view.InstaHandle, err = uc.cipher.Decrypt(order.Evidence.InstaHandleEnc); err != nil {
			uc.logger.Error("decrypting insta handle failed", zap.String("orderId", order.ID), zap.Error(err))
			return nil, err
		}
	}
	return view, nil
}

func (uc *AdminOrdersUseCase) ListOrders(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid order filter", apperrors.ValidationDetail{
			Field:   "filter",
			Message: err.Error(),
		})
	}
	return uc.repo.FindMany(ctx, filter, page.Normalize())
}
