package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/usecase"
)

type AdminOrdersUseCase interface {
	Transition(ctx context.Context, orderID string, target domain.OrderStatus, note *string) (*domain.Order, error)
	UpdateNote(ctx context.Context, orderID, note string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*usecase.AdminOrderView, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error)
}

type AdminController struct {
	responder
	useCase  AdminOrdersUseCase
	validate *validatorv10.Validate
	logger   *zap.Logger
}

func NewAdminController(useCase AdminOrdersUseCase, logger *zap.Logger) *AdminController {
	return &AdminController{
		responder: responder{logger: logger},
		useCase:   useCase,
		validate:  dto.NewValidator(),
		logger:    logger,
	}
}

func (c *AdminController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	filter, page, err := parseListQuery(r)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	result, err := c.useCase.ListOrders(r.Context(), filter, page)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderListResponse{
		TraceID:  traceID,
		Items:    lo.Map(result.Items, func(o domain.Order, _ int) dto.OrderDTO { return toOrderDTO(o) }),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

func (c *AdminController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	view, err := c.useCase.GetOrder(r.Context(), orderID)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	out := withEvidence(toOrderDTO(*view.Order), view.Order.Evidence, view.TransferNumber, view.InstaHandle)
	c.writeJSON(w, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: out})
}

func (c *AdminController) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	var req dto.TransitionStatusRequest
	if !c.decodeJSON(w, r, traceID, &req) {
		return
	}
	if err := dto.Validate(c.validate, req); err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	order, err := c.useCase.Transition(r.Context(), orderID, domain.OrderStatus(req.Status), req.AdminNote)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: toOrderDTO(*order)})
}

func (c *AdminController) UpdateNote(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	var req dto.UpdateNoteRequest
	if !c.decodeJSON(w, r, traceID, &req) {
		return
	}
	if err := dto.Validate(c.validate, req); err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	order, err := c.useCase.UpdateNote(r.Context(), orderID, req.AdminNote)
	if err != nil {
		c.writeError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: toOrderDTO(*order)})
}

func parseListQuery(r *http.Request) (domain.OrderFilter, domain.Page, error) {
	q := r.URL.Query()
	var (
		filter  domain.OrderFilter
		page    domain.Page
		details []apperrors.ValidationDetail
	)

	if s := q.Get("status"); s != "" {
		status, err := domain.ToOrderStatus(s)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: "status", Message: "unknown order status"})
		} else {
			filter.Status = &status
		}
	}
	if m := q.Get("paymentMethod"); m != "" {
		method, err := domain.ToPaymentMethod(m)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: "paymentMethod", Message: "unknown payment method"})
		} else {
			filter.PaymentMethod = &method
		}
	}
	filter.BuyerID = q.Get("buyerId")

	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &page.Number}, {"pageSize", &page.Size}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, apperrors.ValidationDetail{Field: p.name, Message: p.name + " must be a positive integer"})
			continue
		}
		*p.dst = n
	}

	if len(details) > 0 {
		return filter, page, apperrors.NewValidationError("invalid query", details...)
	}
	return filter, page, nil
}
