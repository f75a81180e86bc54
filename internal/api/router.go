package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/handlers"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/interfaces"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/middleware"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/service"
	"github.com/PedroNagatomo/Servico-de-Pagamento/internal/telemetry"
)

func NewRouter(svc *service.PaymentService, repo interfaces.PaymentRepository, redisClient *redis.Client, webhookSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	paymentHandler := handlers.NewPaymentHandler(svc, redisClient)
	webhookHandler := handlers.NewWebhookHandler(repo, webhookSecret)

	payments := r.Group("/payments")
	{
		payments.POST("", middleware.IdempotencyMiddleware(redisClient), paymentHandler.CreatePayment)
		payments.GET("/health", paymentHandler.HealthCheck)
		payments.GET("/statistics", paymentHandler.GetStatistics)
		payments.GET("/payment/:paymentId", paymentHandler.GetPaymentByPaymentID)
		payments.GET("/customer/:customerId", paymentHandler.GetCustomerPayments)
		payments.GET("/status/:status", paymentHandler.GetPaymentsByStatus)
		payments.POST("/refund", paymentHandler.RefundPayment)
		payments.GET("/:id", paymentHandler.GetPayment)
	}

	r.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	return r
}
