package controller

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/usecase"
)

const (
	StripeSignatureHeader = "Stripe-Signature"
	maxWebhookBytes       = 64 << 10
)

type WebhookUseCase interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*usecase.WebhookResult, error)
}

type WebhookController struct {
	responder
	useCase WebhookUseCase
	logger  *zap.Logger
}

func NewWebhookController(useCase WebhookUseCase, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		responder: responder{logger: logger},
		useCase:   useCase,
		logger:    logger,
	}
}

// HandleStripe acknowledges every verified delivery. Signature failures are
// rejected with 400 and storage failures return 500 so the gateway retries.
func (c *WebhookController) HandleStripe(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "INVALID_PAYLOAD", "could not read webhook payload")
		return
	}

	result, err := c.useCase.HandleWebhook(r.Context(), payload, r.Header.Get(StripeSignatureHeader))
	if err != nil {
		if ge, ok := apperrors.IsGatewayError(err); ok && !ge.Retryable {
			c.writeErrorResponse(w, traceID, http.StatusBadRequest, "INVALID_SIGNATURE", "webhook signature verification failed")
			return
		}
		logger.Error("webhook processing failed", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "webhook could not be processed")
		return
	}

	c.writeJSON(w, http.StatusOK, dto.WebhookResponse{
		Received: true,
		EventID:  result.EventID,
		Action:   string(result.Action),
		Applied:  result.Applied,
	})
}
