package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/objectstore"
)

const maskedTail = 3

var allowedEvidenceTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Mask(plaintext string, visibleTail int) string
}

type ObjectStorage interface {
	Upload(ctx context.Context, file objectstore.File, folder string) (objectstore.UploadResult, error)
}

type TransferDetails struct {
	TransferNumber string
	InstaHandle    string
}

type EvidenceImage struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type TransferConfirmation struct {
	OrderID              string
	MaskedTransferNumber string
	MaskedInstaHandle    string
	ImageURL             string
	SubmittedAt          time.Time
}

type TransferService struct {
	repo           OrderRepository
	storage        ObjectStorage
	encryptor      Encryptor
	logger         *zap.Logger
	folder         string
	maxUploadBytes int64
	now            func() time.Time
}

func NewTransferService(
	repo OrderRepository,
	storage ObjectStorage,
	encryptor Encryptor,
	logger *zap.Logger,
	folder string,
	maxUploadBytes int64,
) *TransferService {
	return &TransferService{
		repo:           repo,
		storage:        storage,
		encryptor:      encryptor,
		logger:         logger,
		folder:         folder,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// SubmitTransfer stores proof of a manual transfer on a pending order owned by
// buyerID. The status is never changed here; an admin confirms receipt later.
func (s *TransferService) SubmitTransfer(
	ctx context.Context,
	orderID string,
	buyerID string,
	details TransferDetails,
	image EvidenceImage,
) (*TransferConfirmation, error) {
	logger := s.logger.With(zap.String("orderId", orderID))

	details.TransferNumber = strings.TrimSpace(details.TransferNumber)
	details.InstaHandle = strings.TrimSpace(details.InstaHandle)

	if err := s.validateInput(details, image); err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
	}
	if !order.PaymentMethod.IsManualTransfer() {
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is not paid by manual transfer", orderID))
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is %s, evidence is only accepted while pending", orderID, order.Status))
	}
	if order.PaymentMethod == domain.PaymentMethodInstaTransfer && details.InstaHandle == "" {
		return nil, apperrors.NewValidationError("transfer validation failed", apperrors.ValidationDetail{
			Field:   "instaHandle",
			Message: "instaHandle is required for insta-transfer orders",
		})
	}

	uploaded, err := s.storage.Upload(ctx, objectstore.File{
		Filename:    image.Filename,
		ContentType: image.ContentType,
		Size:        image.Size,
		Content:     image.Content,
	}, path.Join(s.folder, order.ID))
	if err != nil {
		return nil, apperrors.NewInternalError("uploading transfer evidence", err)
	}

	evidence := domain.PaymentEvidence{
		TransferNumberMasked: s.encryptor.Mask(details.TransferNumber, maskedTail),
		ImageURL:             uploaded.SecureURL,
		ImagePublicID:        uploaded.PublicID,
		SubmittedAt:          s.now().UTC(),
	}
	if evidence.TransferNumberEnc, err = s.encryptor.Encrypt(details.TransferNumber); err != nil {
		return nil, apperrors.NewInternalError("encrypting transfer number", err)
	}
	if order.PaymentMethod == domain.PaymentMethodInstaTransfer {
		evidence.InstaHandleMasked = s.encryptor.Mask(details.InstaHandle, maskedTail)
		if evidence.InstaHandleEnc, err = s.encryptor.Encrypt(details.InstaHandle); err != nil {
			return nil, apperrors.NewInternalError("encrypting insta handle", err)
		}
	}

	_, err = s.repo.UpdateConditional(ctx, order.ID, domain.OrderStatusPending, domain.OrderPatch{Evidence: &evidence})
	if errors.Is(err, apperrors.ErrStatusMismatch) {
		logger.Warn("order left pending during evidence upload, object orphaned",
			zap.String("objectId", uploaded.PublicID),
		)
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf("order %s is no longer pending", orderID))
	}
	if err != nil {
		logger.Error("persisting transfer evidence failed", zap.String("objectId", uploaded.PublicID), zap.Error(err))
		return nil, err
	}

	logger.Info("transfer evidence submitted", zap.String("objectId", uploaded.PublicID))

	return &TransferConfirmation{
		OrderID:              order.ID,
		MaskedTransferNumber: evidence.TransferNumberMasked,
		MaskedInstaHandle:    evidence.InstaHandleMasked,
		ImageURL:             uploaded.SecureURL,
		SubmittedAt:          evidence.SubmittedAt,
	}, nil
}

func (s *TransferService) validateInput(details TransferDetails, image EvidenceImage) error {
	var violations []apperrors.ValidationDetail

	switch {
	case image.Content == nil || image.Size <= 0:
		violations = append(violations, apperrors.ValidationDetail{Field: "evidence", Message: "evidence image is required"})
	case s.maxUploadBytes > 0 && image.Size > s.maxUploadBytes:
		violations = append(violations, apperrors.ValidationDetail{
			Field:   "evidence",
			Message: fmt.Sprintf("evidence image exceeds %d bytes", s.maxUploadBytes),
		})
	}
	if image.Content != nil {
		if _, ok := allowedEvidenceTypes[strings.ToLower(image.ContentType)]; !ok {
			violations = append(violations, apperrors.ValidationDetail{
				Field:   "evidence",
				Message: "evidence must be an image of type jpeg/png/webp",
			})
		}
	}
	if details.TransferNumber == "" {
		violations = append(violations, apperrors.ValidationDetail{Field: "transferNumber", Message: "transferNumber is required"})
	}

	if len(violations) > 0 {
		return apperrors.NewValidationError("transfer validation failed", violations...)
	}
	return nil
}
