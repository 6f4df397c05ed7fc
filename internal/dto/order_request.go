package dto

type AccountInfoEntryDTO struct {
	FieldName string `json:"fieldName" validate:"required"`
	Value     string `json:"value"`
}

type PlaceOrderRequest struct {
	BuyerID       string                `json:"buyerId" validate:"required"`
	BuyerEmail    string                `json:"buyerEmail" validate:"required,email"`
	ProductID     string                `json:"productId" validate:"required"`
	SubProductID  *string               `json:"subProductId,omitempty" validate:"omitempty,min=1"`
	AccountInfo   []AccountInfoEntryDTO `json:"accountInfo" validate:"dive"`
	CouponCode    string                `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	PaymentMethod string                `json:"paymentMethod" validate:"required,oneof=card cash wallet-transfer insta-transfer fawry-transfer"`
}

// TransitionStatusRequest is the admin status change. AdminNote replaces the
// stored note only when present.
type TransitionStatusRequest struct {
	Status    string  `json:"status" validate:"required,oneof=pending paid delivered rejected"`
	AdminNote *string `json:"adminNote,omitempty" validate:"omitempty,max=2000"`
}

type UpdateNoteRequest struct {
	AdminNote string `json:"adminNote" validate:"max=2000"`
}

type QuoteRequest struct {
	ProductID    string  `json:"productId" validate:"required"`
	SubProductID *string `json:"subProductId,omitempty" validate:"omitempty,min=1"`
	CouponCode   string  `json:"couponCode,omitempty" validate:"omitempty,max=64"`
}
