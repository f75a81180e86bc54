package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/gateway"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

type WebhookHandler struct {
	repo          interfaces.PaymentRepository
	webhookSecret string
}

func NewWebhookHandler(repo interfaces.PaymentRepository, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		repo:          repo,
		webhookSecret: webhookSecret,
	}
}

// HandleStripeWebhook verifies the event signature and reconciles the
// matching payment record. Unhandled event types are acknowledged with 200
// so Stripe does not retry them.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Unable to read request body")
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		c.String(http.StatusBadRequest, "Missing Stripe-Signature header")
		return
	}

	event, err := gateway.ConstructWebhookEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		telemetry.Logger.Error("Webhook signature verification failed", zap.Error(err))
		c.String(http.StatusBadRequest, "Invalid signature")
		return
	}

	telemetry.Logger.Info("Received webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)
	telemetry.WebhookEvents.WithLabelValues(event.Type).Inc()

	switch event.Type {
	case "payment_intent.succeeded":
		h.reconcile(c, event, models.StatusSuccess)
	case "payment_intent.payment_failed":
		h.reconcile(c, event, models.StatusFailed)
	case "charge.refunded":
		h.reconcile(c, event, models.StatusRefunded)
	default:
		telemetry.Logger.Warn("Unhandled webhook event type", zap.String("event_type", event.Type))
	}

	c.String(http.StatusOK, "Webhook received")
}

func (h *WebhookHandler) reconcile(c *gin.Context, event *gateway.WebhookEvent, status models.PaymentStatus) {
	paymentID := event.ObjectID()
	if paymentID == "" {
		telemetry.Logger.Warn("Webhook event carries no object id", zap.String("event_id", event.ID))
		return
	}

	err := h.repo.UpdateStatus(c.Request.Context(), paymentID, status)
	if errors.Is(err, interfaces.ErrNotFound) {
		// The event may reference a charge created outside this service.
		telemetry.Logger.Warn("Webhook event for unknown payment",
			zap.String("payment_id", paymentID),
			zap.String("event_type", event.Type),
		)
		return
	}
	if err != nil {
		telemetry.Logger.Error("Failed to reconcile webhook event",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return
	}

	telemetry.Logger.Info("Payment reconciled from webhook",
		zap.String("payment_id", paymentID),
		zap.String("status", string(status)),
	)
}
