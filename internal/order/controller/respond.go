package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

type responder struct {
	logger *zap.Logger
}

// writeError maps an application error to its HTTP status. Messages of
// pricing and unexpected errors are not exposed.
func (r responder) writeError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		r.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		r.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsNotEligibleError(err); ok {
		r.writeErrorResponse(w, traceID, http.StatusConflict, "NOT_ELIGIBLE", err.Error())
		return
	}

	if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		r.writeErrorResponse(w, traceID, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		r.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		r.writeErrorResponse(w, traceID, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}

	if _, ok := apperrors.IsPricingError(err); ok {
		logger.Error("pricing error", zap.Error(err))
		r.writeErrorResponse(w, traceID, http.StatusInternalServerError, "PRICING_ERROR", "the order could not be priced")
		return
	}

	if _, ok := apperrors.IsDecryptionError(err); ok {
		logger.Error("decryption error", zap.Error(err))
		r.writeErrorResponse(w, traceID, http.StatusInternalServerError, "DECRYPTION_ERROR", "stored evidence could not be read")
		return
	}

	if ge, ok := apperrors.IsGatewayError(err); ok {
		logger.Error("payment gateway error", zap.String("op", ge.Op), zap.Bool("retryable", ge.Retryable), zap.Error(err))
		status := http.StatusBadGateway
		if ge.Retryable {
			status = http.StatusServiceUnavailable
		}
		r.writeErrorResponse(w, traceID, status, "GATEWAY_ERROR", "the payment provider is unavailable")
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	r.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (r responder) writeErrorResponse(w http.ResponseWriter, traceID string, status int, code, message string) {
	r.writeJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (r responder) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	r.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (r responder) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		r.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (r responder) decodeJSON(w http.ResponseWriter, req *http.Request, traceID string, out interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		r.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}
