package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
)

const (
	BuyerIDHeader      = "X-Buyer-ID"
	multipartOverhead  = 1 << 20
	evidenceFormField  = "evidence"
	transferNumberForm = "transferNumber"
	instaHandleForm    = "instaHandle"
)

type PlaceOrderUseCase interface {
	PlaceOrder(ctx context.Context, req usecase.PlaceOrderRequest) (*usecase.PlaceOrderResult, error)
}

type CheckoutUseCase interface {
	CreateCheckoutSession(ctx context.Context, orderID, buyerID string) (*usecase.CheckoutResult, error)
}

type CustomerOrdersUseCase interface {
	GetOrder(ctx context.Context, orderID, buyerID string) (*usecase.CustomerOrderView, error)
}

type TransferService interface {
	SubmitTransfer(ctx context.Context, orderID, buyerID string, details service.TransferDetails, image service.EvidenceImage) (*service.TransferConfirmation, error)
}

// OrderController serves the buyer-facing order endpoints.
type OrderController struct {
	responder
	placeOrder     PlaceOrderUseCase
	checkout       CheckoutUseCase
	orders         CustomerOrdersUseCase
	transfers      TransferService
	validate       *validatorv10.Validate
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewOrderController(
	placeOrder PlaceOrderUseCase,
	checkout CheckoutUseCase,
	orders CustomerOrdersUseCase,
	transfers TransferService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *OrderController {
	return &OrderController{
		responder:      responder{logger: logger},
		placeOrder:     placeOrder,
		checkout:       checkout,
		orders:         orders,
		transfers:      transfers,
		validate:       dto.NewValidator(),
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (c *OrderController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.PlaceOrderRequest
	if !c.decodeJSON(w, r, traceID, &req) {
		return
	}
	if err := dto.Validate(c.validate, req); err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	result, err := c.placeOrder.PlaceOrder(r.Context(), usecase.PlaceOrderRequest{
		BuyerID:       req.BuyerID,
		BuyerEmail:    req.BuyerEmail,
		ProductID:     req.ProductID,
		SubProductID:  req.SubProductID,
		AccountInfo:   toAccountInfo(req.AccountInfo),
		CouponCode:    req.CouponCode,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.OrderResponse{
		TraceID:     traceID,
		Order:       customerOrderDTO(*result.Order),
		CheckoutURL: result.CheckoutURL,
	})
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	buyerID, ok := c.requireBuyer(w, r, traceID)
	if !ok {
		return
	}

	view, err := c.orders.GetOrder(r.Context(), orderID, buyerID)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	out := withEvidence(customerOrderDTO(*view.Order), view.Order.Evidence, view.MaskedTransferNumber, view.MaskedInstaHandle)
	c.writeJSON(w, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: out})
}

func (c *OrderController) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	buyerID, ok := c.requireBuyer(w, r, traceID)
	if !ok {
		return
	}

	result, err := c.checkout.CreateCheckoutSession(r.Context(), orderID, buyerID)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.CheckoutResponse{
		TraceID:     traceID,
		OrderID:     result.Order.ID,
		SessionID:   result.SessionID,
		CheckoutURL: result.URL,
	})
}

// SubmitTransfer accepts multipart evidence for manual transfer orders.
func (c *OrderController) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	buyerID, ok := c.requireBuyer(w, r, traceID)
	if !ok {
		return
	}

	if c.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(c.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		msg := "request must be multipart/form-data"
		if errors.As(err, &tooLarge) {
			msg = "evidence image is too large"
		}
		c.writeValidationError(w, traceID, "invalid transfer submission", apperrors.ValidationDetail{
			Field:   evidenceFormField,
			Message: msg,
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var image service.EvidenceImage
	file, header, err := r.FormFile(evidenceFormField)
	switch {
	case err == nil:
		defer file.Close()
		image = service.EvidenceImage{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		}
	case errors.Is(err, http.ErrMissingFile):
		// Left empty; the service reports the missing image with the other fields.
	default:
		c.writeError(w, traceID, err, logger)
		return
	}

	confirmation, err := c.transfers.SubmitTransfer(r.Context(), orderID, buyerID, service.TransferDetails{
		TransferNumber: r.FormValue(transferNumberForm),
		InstaHandle:    r.FormValue(instaHandleForm),
	}, image)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.TransferResponse{
		TraceID:              traceID,
		OrderID:              confirmation.OrderID,
		MaskedTransferNumber: confirmation.MaskedTransferNumber,
		MaskedInstaHandle:    confirmation.MaskedInstaHandle,
		ImageURL:             confirmation.ImageURL,
		SubmittedAt:          confirmation.SubmittedAt,
	})
}

// requireBuyer reads X-Buyer-ID. Orders of other buyers answer NotFound
// further down, so only a missing header is reported here.
func (c *OrderController) requireBuyer(w http.ResponseWriter, r *http.Request, traceID string) (string, bool) {
	buyerID := strings.TrimSpace(r.Header.Get(BuyerIDHeader))
	if buyerID == "" {
		c.writeValidationError(w, traceID, "missing buyer", apperrors.ValidationDetail{
			Field:   BuyerIDHeader,
			Message: "buyer id header is required",
		})
		return "", false
	}
	return buyerID, true
}

// customerOrderDTO drops operator-only fields.
func customerOrderDTO(o domain.Order) dto.OrderDTO {
	out := toOrderDTO(o)
	out.AdminNote = ""
	out.PaymentReference = ""
	return out
}
