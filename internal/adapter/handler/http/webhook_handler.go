package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
)

// maxWebhookBody caps the raw payload read before signature verification.
const maxWebhookBody = 1 << 20

// EventVerifier checks webhook signatures. provider.PaymentGateway satisfies it.
type EventVerifier interface {
	Enabled() bool
	ConstructEvent(payload []byte, signature string) (*provider.Event, error)
}

// WebhookProcessor applies verified events.
type WebhookProcessor interface {
	HandleWebhookEvent(ctx context.Context, event *provider.Event) error
}

type WebhookHandler struct {
	verifier  EventVerifier
	processor WebhookProcessor
	logger    *zap.Logger
}

func NewWebhookHandler(verifier EventVerifier, processor WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		processor: processor,
		logger:    logger,
	}
}

// HandleStripeWebhook handles POST /webhook/stripe. The body is read raw
// because the signature covers the exact bytes sent.
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	if !h.verifier.Enabled() {
		h.logger.Warn("Webhook received while payments are disabled")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Payments are not configured"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}
	if len(body) > maxWebhookBody {
		h.logger.Warn("Webhook body too large", zap.Int("bytes", len(body)))
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "Request body too large"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	event, err := h.verifier.ConstructEvent(body, sig)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidSignature) {
			h.logger.Warn("Webhook signature verification failed", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Webhook signature verification failed"})
		}
		return respondError(h.logger, err, "Failed to decode webhook event")
	}

	h.logger.Info("Webhook event received",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("intent_id", event.IntentID))

	if err := h.processor.HandleWebhookEvent(c.Request().Context(), event); err != nil {
		return respondError(h.logger, err, "Failed to handle webhook event", zap.String("event_id", event.ID))
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
