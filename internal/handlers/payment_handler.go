package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/gateway"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/models"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/service"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

type PaymentHandler struct {
	service     *service.PaymentService
	redisClient *redis.Client
}

func NewPaymentHandler(svc *service.PaymentService, redisClient *redis.Client) *PaymentHandler {
	return &PaymentHandler{
		service:     svc,
		redisClient: redisClient,
	}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Warn("Invalid payment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
		return
	}

	span := trace.SpanFromContext(ctx)
	telemetry.Logger.Info("Creating payment",
		zap.String("customer_id", req.CustomerID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	payment, err := h.service.ProcessPayment(ctx, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response := payment.ToResponse()

	// Replay protection: cache the response under the caller's key so the
	// idempotency middleware can short-circuit retries.
	if key := c.GetString("idempotency_key"); key != "" && h.redisClient != nil {
		responseJSON, _ := json.Marshal(response)
		h.redisClient.Set(ctx, fmt.Sprintf("idempotency:%s", key), responseJSON, 24*time.Hour)
	}

	c.JSON(http.StatusCreated, response)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := h.service.GetPaymentByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment.ToResponse())
}

func (h *PaymentHandler) GetPaymentByPaymentID(c *gin.Context) {
	payment, err := h.service.GetPaymentByPaymentID(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment.ToResponse())
}

func (h *PaymentHandler) GetCustomerPayments(c *gin.Context) {
	payments, err := h.service.GetPaymentsByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponses(payments))
}

func (h *PaymentHandler) GetPaymentsByStatus(c *gin.Context) {
	payments, err := h.service.GetPaymentsByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponses(payments))
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Warn("Invalid refund request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
		return
	}

	refund, err := h.service.RefundPayment(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund.ToResponse())
}

func (h *PaymentHandler) GetStatistics(c *gin.Context) {
	stats, err := h.service.GetPaymentStatistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "Payment Service is running!")
}

func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, gateway.ErrUnsupportedGateway):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrGatewayRefund):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		telemetry.Logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func toResponses(payments []models.Payment) []models.PaymentResponse {
	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	return responses
}
