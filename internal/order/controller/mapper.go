package controller

import (
	"github.com/samber/lo"

	"storefront/internal/domain"
	"storefront/internal/dto"
)

func toOrderDTO(o domain.Order) dto.OrderDTO {
	out := dto.OrderDTO{
		ID:           o.ID,
		BuyerID:      o.BuyerID,
		ProductID:    o.ProductID,
		SubProductID: o.SubProductID,
		AccountInfo: lo.Map(o.AccountInfo, func(e domain.AccountInfoEntry, _ int) dto.AccountInfoEntryDTO {
			return dto.AccountInfoEntryDTO{FieldName: e.Field, Value: e.Value}
		}),
		BaseAmount:       o.BaseAmount,
		TotalAmount:      o.TotalAmount,
		Status:           string(o.Status),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentReference: o.PaymentReference,
		AdminNote:        o.AdminNote,
		RefundAmount:     o.RefundAmount,
		RefundDate:       o.RefundDate,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.Discount != nil {
		out.Discount = &dto.DiscountDTO{
			CouponCode: o.Discount.CouponCode,
			Type:       string(o.Discount.Type),
			Amount:     o.Discount.Amount,
		}
	}
	return out
}

// withEvidence attaches evidence using already masked or decrypted values.
func withEvidence(out dto.OrderDTO, evidence *domain.PaymentEvidence, transferNumber, instaHandle string) dto.OrderDTO {
	if evidence == nil {
		return out
	}
	out.Evidence = &dto.EvidenceDTO{
		TransferNumber: transferNumber,
		InstaHandle:    instaHandle,
		ImageURL:       evidence.ImageURL,
		SubmittedAt:    evidence.SubmittedAt,
	}
	return out
}

func toAccountInfo(entries []dto.AccountInfoEntryDTO) []domain.AccountInfoEntry {
	return lo.Map(entries, func(e dto.AccountInfoEntryDTO, _ int) domain.AccountInfoEntry {
		return domain.AccountInfoEntry{Field: e.FieldName, Value: e.Value}
	})
}
