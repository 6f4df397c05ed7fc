package catalog

import (
	"encoding/json"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type Controller struct {
	useCase  QuoteUseCase
	validate *validatorv10.Validate
	logger   *zap.Logger
}

func NewController(useCase QuoteUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase:  useCase,
		validate: dto.NewValidator(),
		logger:   logger,
	}
}

func (c *Controller) HandleQuote(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	var req dto.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := dto.Validate(c.validate, req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	quote, err := c.useCase.Quote(r.Context(), req)
	if err != nil {
		if ve, ok := apperrors.IsValidationError(err); ok {
			c.writeValidationError(w, ve.Message, ve.Details...)
			return
		}
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "NOT_FOUND",
				"message": err.Error(),
			})
			return
		}
		c.logger.Error("quote failed", zap.String("traceId", traceID), zap.String("productId", req.ProductID), zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "INTERNAL_ERROR",
			"message": "an unexpected error occurred",
		})
		return
	}

	c.writeJSON(w, http.StatusOK, dto.QuoteResponse{
		TraceID:       traceID,
		ProductID:     req.ProductID,
		SubProductID:  req.SubProductID,
		BaseAmount:    quote.Base,
		Discount:      quote.Discount,
		TotalAmount:   quote.Total,
		CouponApplied: quote.CouponApplied,
		CouponCode:    quote.CouponCode,
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
