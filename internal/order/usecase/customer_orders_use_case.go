package usecase

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

// CustomerOrderView never exposes decrypted evidence, only masked previews.
type CustomerOrderView struct {
	Order                *domain.Order
	MaskedTransferNumber string
	MaskedInstaHandle    string
}

type CustomerOrdersUseCase struct {
	repo OrderRepository
}

// NewCustomerOrdersUseCase takes no cipher: buyer views only ever read the
// previews masked at submission time.
func NewCustomerOrdersUseCase(repo OrderRepository) *CustomerOrdersUseCase {
	return &CustomerOrdersUseCase{repo: repo}
}

// GetOrder returns NotFound for orders owned by another buyer so their ids
// are never confirmed.
func (uc *CustomerOrdersUseCase) GetOrder(ctx context.Context, orderID, buyerID string) (*CustomerOrderView, error) {
	order, err := uc.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
	}

	view := &CustomerOrderView{Order: order}
	if order.Evidence != nil {
		view.MaskedTransferNumber = order.Evidence.TransferNumberMasked
		view.MaskedInstaHandle = order.Evidence.InstaHandleMasked
	}
	return view, nil
}
